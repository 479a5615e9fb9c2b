package models

// Control is a single requirement from the compliance framework catalog.
// Controls are immutable reference data loaded once at process start.
type Control struct {
	Code        string `json:"code" yaml:"code"`
	Domain      string `json:"domain" yaml:"domain"`
	Requirement string `json:"requirement" yaml:"requirement"`
}
