package lifecycle

// MergeImages builds the image list of a revision: the images kept from the
// previous state, in their order, followed by the newly uploaded ones.
// Images listed in removed are dropped and duplicates keep their first position.
func MergeImages(existing, removed, uploaded []string) []string {
	drop := make(map[string]struct{}, len(removed))
	for _, r := range removed {
		drop[r] = struct{}{}
	}

	seen := make(map[string]struct{}, len(existing)+len(uploaded))
	merged := make([]string, 0, len(existing)+len(uploaded))
	add := func(img string) {
		if img == "" {
			return
		}
		if _, ok := seen[img]; ok {
			return
		}
		seen[img] = struct{}{}
		merged = append(merged, img)
	}

	for _, img := range existing {
		if _, gone := drop[img]; gone {
			continue
		}
		add(img)
	}
	for _, img := range uploaded {
		add(img)
	}
	return merged
}
