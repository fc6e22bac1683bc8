package fabric

// SubGroupSpan describes one contiguous chunk of local-linear ids assigned
// to a sub-group.
type SubGroupSpan struct {
	Offset int
	Count  int
}

// PartitionSubGroups splits a work-group of groupSize local-linear ids
// into contiguous spans of at most maxWidth lanes each (spec.md §4.4's
// "sub-group indexing partitions a work-group's local linear ids into
// contiguous chunks of sub_group_max_width"). The final span is narrower
// than maxWidth when groupSize is not a multiple of it, matching spec.md
// §4.3's trailing-lane rule.
func PartitionSubGroups(groupSize, maxWidth int) []SubGroupSpan {
	if maxWidth <= 0 || maxWidth >= groupSize {
		return []SubGroupSpan{{Offset: 0, Count: groupSize}}
	}
	spans := make([]SubGroupSpan, 0, (groupSize+maxWidth-1)/maxWidth)
	for offset := 0; offset < groupSize; offset += maxWidth {
		count := maxWidth
		if offset+count > groupSize {
			count = groupSize - offset
		}
		spans = append(spans, SubGroupSpan{Offset: offset, Count: count})
	}
	return spans
}
