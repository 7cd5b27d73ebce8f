package store

// MetaLookup adapts a Store's GetMeta to the single-value lookup shape
// that internal/roles.MetaSource expects (used to resolve "rule.<name>"
// expressions for conditional permissions). A thin adapter type keeps
// store from depending on the roles package just to share one method
// name that already means something different here.
type MetaLookup struct {
	S *Store
}

// GetMeta returns the resolved meta value for key with no language or
// environment override, and whether it was found.
func (m MetaLookup) GetMeta(key string) (string, bool) {
	resp, err := m.S.GetMeta(Request{Key: key}, false)
	if err != nil {
		return "", false
	}
	return resp.Data, true
}
