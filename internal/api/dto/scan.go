package dto

type ScanRequest struct {
	Code string `json:"code"`
	// Provenance defaults to manual.
	Provenance string `json:"provenance"`
}

type ScanResponse struct {
	Raw            string `json:"raw"`
	Code           string `json:"code,omitempty"`
	RouteID        string `json:"route_id,omitempty"`
	Provenance     string `json:"provenance"`
	Classification string `json:"classification,omitempty"`
	Ignored        bool   `json:"ignored"`
	Reason         string `json:"reason,omitempty"`
	Alert          bool   `json:"alert"`
	Duplicates     int    `json:"duplicates,omitempty"`
	Pending        int    `json:"pending"`
	Confirmed      int    `json:"confirmed"`
	OutOfRoute     int    `json:"out_of_route"`
}

type ManualIDsRequest struct {
	IDs string `json:"ids"`
}

type ManualIDsResponse struct {
	Added int `json:"added"`
}

type KeyEventRequest struct {
	Key string `json:"key"`
	// AtMS is the client timestamp in Unix milliseconds; 0 uses server time.
	AtMS  int64  `json:"at_ms"`
	Value string `json:"value"`
}

type KeystrokesRequest struct {
	SessionID string            `json:"session_id"`
	Events    []KeyEventRequest `json:"events"`
}

type KeystrokesResponse struct {
	Scans []ScanResponse `json:"scans"`
}
