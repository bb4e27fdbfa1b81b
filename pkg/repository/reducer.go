package repository

// Decoder turns one stored document into a domain value.
type Decoder[T any] func(id string, fields map[string]any) (T, error)

// Reduce derives the replica's next view from a snapshot notification. The
// consistency model is "latest consistent snapshot": the previous view is
// replaced wholesale, never patched incrementally. Documents that fail to
// decode are skipped so one malformed record cannot poison the view; the
// skip count is returned for the caller to log.
//
// Applying the same snapshot twice yields the same view.
func Reduce[T any](snap Snapshot, capacity int, decode Decoder[T]) ([]T, int) {
	items := make([]T, 0, len(snap))
	skipped := 0
	for _, doc := range snap {
		if capacity > 0 && len(items) >= capacity {
			break
		}
		item, err := decode(doc.ID, doc.Fields)
		if err != nil {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}
