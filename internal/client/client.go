package client

// Client identifies who submitted a request: a firm and, optionally,
// one of the firm's clients.
type Client struct {
	FirmID       string `json:"firm_id"`
	FirmClientID string `json:"firm_client_id,omitempty"`
}

// RequestID is the client-assigned request identifier chain. Current is
// the ID of this request; Original names the request it refers to when
// cancelling or replacing.
type RequestID struct {
	Current      string `json:"current"`
	Original     string `json:"original,omitempty"`
	CollectionID string `json:"collection_id,omitempty"`
	ParentID     string `json:"parent_id,omitempty"`
}

// RequestLinksToOriginal reports whether next refers to original, either
// because it carries the same current ID or because its Original field
// names original's current ID. The relation is directional.
func RequestLinksToOriginal(original, next RequestID) bool {
	if original.Current == next.Current {
		return true
	}
	return next.Original != "" && original.Current == next.Original
}
