package match

// Rank orders matches best-first: ascending width, then ascending start
// offset, then ascending original index. It is a two-level bucket sort rather
// than a comparison sort so ranking stays proportional to the number of
// matches even on very large candidate sets. Input order is preserved within
// equal (width, start) buckets, which keeps the result stable by original
// index as long as the input came from an ascending Filter scan.
func Rank(data []Data) []Data {
	if len(data) < 2 {
		return data
	}

	maxWidth := 0
	for _, d := range data {
		if d.Width > maxWidth {
			maxWidth = d.Width
		}
	}

	byWidth := make([][]Data, maxWidth+1)
	for _, d := range data {
		byWidth[d.Width] = append(byWidth[d.Width], d)
	}

	out := make([]Data, 0, len(data))
	for _, bucket := range byWidth {
		switch len(bucket) {
		case 0:
		case 1:
			out = append(out, bucket[0])
		default:
			out = appendByStart(out, bucket)
		}
	}
	return out
}

// appendByStart counting-sorts one width bucket by start offset and appends
// it to out, preserving input order within equal starts.
func appendByStart(out, bucket []Data) []Data {
	maxStart := 0
	for _, d := range bucket {
		if d.Start > maxStart {
			maxStart = d.Start
		}
	}

	byStart := make([][]Data, maxStart+1)
	for _, d := range bucket {
		byStart[d.Start] = append(byStart[d.Start], d)
	}
	for _, b := range byStart {
		out = append(out, b...)
	}
	return out
}

// Indices projects ranked match data onto candidate indices; the result is
// the picker's new match index set.
func Indices(data []Data) []int {
	inds := make([]int, len(data))
	for i, d := range data {
		inds[i] = d.Index
	}
	return inds
}
