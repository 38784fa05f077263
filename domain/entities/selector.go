package entities

// SelectorCandidates is an ordered list of locators, most specific first
type SelectorCandidates []string

// Match represents a resolved element together with the locator that found it
type Match struct {
	Selector string `json:"selector"`
	Index    int    `json:"index"`
}
