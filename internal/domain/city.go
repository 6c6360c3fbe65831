package domain

import "encoding/json"

// City is a resolved location. The ID scopes every store, catalog and offer
// request for the rest of the run.
type City struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}
