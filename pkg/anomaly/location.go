package anomaly

// LocationResolver decides whether two login sources count as the same
// location. The detection rules only depend on this interface, so the
// heuristic can be swapped for a real geo-IP service without touching the
// rule orchestration.
type LocationResolver interface {
	SameLocation(previousIP, currentIP string) bool
}

// IPEqualityResolver is the default resolver: plain IP-string equality.
// This is a coarse proxy, not geolocation -- a user moving between home and
// mobile networks looks like a location change, and two machines behind one
// NAT look like the same place.
type IPEqualityResolver struct{}

func (IPEqualityResolver) SameLocation(previousIP, currentIP string) bool {
	return previousIP == currentIP
}
