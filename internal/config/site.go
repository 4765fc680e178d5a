package config

import "fmt"

// SiteConfig identifies the web application and the form credentials used to
// log into it.
type SiteConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Selectors locate the UI elements the pipeline interacts with. The first
// five are CSS selectors; the link fields match the exact visible text of an
// anchor.
type Selectors struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	LoginButton string `yaml:"login_button"`
	Dropdown    string `yaml:"dropdown"`
	Submenu     string `yaml:"submenu"`
	ExportLink  string `yaml:"export_link"`

	// Visible text of the link that opens the export page.
	NavigationLinkText string `yaml:"navigation_link_text"`
	// Visible text of the link that triggers the download.
	ExportLinkText string `yaml:"export_link_text"`
}

func (s Selectors) validate() []error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"selectors.username", s.Username},
		{"selectors.password", s.Password},
		{"selectors.login_button", s.LoginButton},
		{"selectors.dropdown", s.Dropdown},
		{"selectors.submenu", s.Submenu},
		{"selectors.navigation_link_text", s.NavigationLinkText},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	if s.ExportLink == "" && s.ExportLinkText == "" {
		errs = append(errs, fmt.Errorf("one of selectors.export_link or selectors.export_link_text is required"))
	}
	return errs
}
