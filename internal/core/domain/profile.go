package domain

// ProfileRecord is a normalized professional-network profile. It is produced
// by the scrape collaborator, owned by the analysis orchestrator once
// fetched, and persisted inside a UserObject document.
type ProfileRecord struct {
	ProfileID string `json:"profileId"`
	URL       string `json:"url"`      // canonical profile URL
	InputURL  string `json:"inputUrl"` // URL as originally requested
	FullName  string `json:"fullName,omitempty"`
	Headline  string `json:"headline,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Country   string `json:"country,omitempty"`

	Experiences []Experience `json:"experiences,omitempty"`
	Education   []Education  `json:"education,omitempty"`
	Skills      []string     `json:"skills,omitempty"`

	// Optional sections - most profiles carry only a few of these.
	Publications    []Publication    `json:"publications,omitempty"`
	Languages       []Language       `json:"languages,omitempty"`
	Certificates    []Certificate    `json:"certificates,omitempty"`
	Honors          []Honor          `json:"honors,omitempty"`
	Volunteer       []VolunteerWork  `json:"volunteer,omitempty"`
	Patents         []Patent         `json:"patents,omitempty"`
	TestScores      []TestScore      `json:"testScores,omitempty"`
	Organizations   []Organization   `json:"organizations,omitempty"`
	Featured        []FeaturedItem   `json:"featured,omitempty"`
	Projects        []Project        `json:"projects,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Causes          []string         `json:"causes,omitempty"`
	Contact         *ContactInfo     `json:"contact,omitempty"`
}

// Experience is one position entry.
type Experience struct {
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Description  string `json:"description,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"` // empty = current position
}

// Education is one education entry.
type Education struct {
	School    string `json:"school"`
	Degree    string `json:"degree,omitempty"`
	Field     string `json:"field,omitempty"`
	StartYear string `json:"startYear,omitempty"`
	EndYear   string `json:"endYear,omitempty"`
}

// Publication is a published work listed on the profile.
type Publication struct {
	Title     string `json:"title"`
	Publisher string `json:"publisher,omitempty"`
	Date      string `json:"date,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Language is a spoken language with optional proficiency.
type Language struct {
	Name        string `json:"name"`
	Proficiency string `json:"proficiency,omitempty"`
}

// Certificate is a certification or license.
type Certificate struct {
	Name      string `json:"name"`
	Authority string `json:"authority,omitempty"`
	Date      string `json:"date,omitempty"`
}

// Honor is an award or honor entry.
type Honor struct {
	Title  string `json:"title"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
}

// VolunteerWork is a volunteer experience entry.
type VolunteerWork struct {
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Patent is a patent entry.
type Patent struct {
	Title  string `json:"title"`
	Number string `json:"number,omitempty"`
	Date   string `json:"date,omitempty"`
}

// TestScore is a standardized test result.
type TestScore struct {
	Name  string `json:"name"`
	Score string `json:"score,omitempty"`
	Date  string `json:"date,omitempty"`
}

// Organization is a professional-organization membership.
type Organization struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// FeaturedItem is a pinned/featured content item.
type FeaturedItem struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Project is a project entry.
type Project struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Recommendation is a received recommendation.
type Recommendation struct {
	Author string `json:"author,omitempty"`
	Text   string `json:"text"`
}

// ContactInfo holds contact signals surfaced on the profile.
type ContactInfo struct {
	Emails   []string `json:"emails,omitempty"`
	Phones   []string `json:"phones,omitempty"`
	Websites []string `json:"websites,omitempty"`
}
