// Package listing holds the listing data model and the parsing rules applied
// to scraped search results: online-age parsing, ad id extraction and
// per-scan deduplication.
package listing

// AdType distinguishes a shared-room listing from a whole-apartment listing.
// It selects the tone and instructions used for the generated message.
type AdType string

const (
	AdTypeWG      AdType = "wg"
	AdTypeWohnung AdType = "wohnung"
)

// Label returns the German label used in prompts and console output.
func (t AdType) Label() string {
	if t == AdTypeWohnung {
		return "Wohnung"
	}
	return "WG-Zimmer"
}

// Listing is one entry from a search results page.
type Listing struct {
	AdID  string `json:"ad_id" yaml:"ad_id"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
	Price string `json:"price" yaml:"price"`
	Size  string `json:"size" yaml:"size"`

	// AgeMinutes is nil when the online-age label could not be parsed.
	AgeMinutes *int   `json:"age_minutes" yaml:"age_minutes"`
	RawAgeText string `json:"raw_age_text" yaml:"raw_age_text"`
}

// Details is the data extracted from a listing detail page.
type Details struct {
	Title         string `json:"title" yaml:"title"`
	Address       string `json:"address" yaml:"address"`
	Description   string `json:"full_description" yaml:"full_description"`
	AdID          string `json:"ad_id" yaml:"ad_id"`
	Rent          string `json:"rent" yaml:"rent"`
	Size          string `json:"size" yaml:"size"`
	AvailableFrom string `json:"available_from" yaml:"available_from"`
	PublisherName string `json:"publisher_name" yaml:"publisher_name"`
	AdType        AdType `json:"ad_type" yaml:"ad_type"`
}

// GenerationRequest is the input for message generation.
type GenerationRequest struct {
	Title         string
	Address       string
	PublisherName string
	Description   string
	DriveLink     string
	AdType        AdType
}

// Request builds a GenerationRequest from the extracted details.
func (d Details) Request(driveLink string) GenerationRequest {
	adType := d.AdType
	if adType == "" {
		adType = AdTypeWG
	}
	return GenerationRequest{
		Title:         d.Title,
		Address:       d.Address,
		PublisherName: d.PublisherName,
		Description:   d.Description,
		DriveLink:     driveLink,
		AdType:        adType,
	}
}
