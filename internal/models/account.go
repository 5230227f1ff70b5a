package models

// Key is a provisioning key an agent is created with.
type Key struct {
	ID      Ref    `json:"id"`
	Address string `json:"address,omitempty"`
}

// Seats reports how many more agents the account may run.
type Seats struct {
	NAvailable int `json:"n_available"`
	NUsed      int `json:"n_used,omitempty"`
	NTotal     int `json:"n_total,omitempty"`
}
