// Package presenters transforms application results into API view models.
package presenters

import (
	"spconnect/domain/sharepoint"
)

// SiteVM is one discovered site collection.
type SiteVM struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Path  string `json:"path"`
}

// SitePresenter transforms discovered sites into view models.
type SitePresenter struct{}

// NewSitePresenter creates a new site presenter.
func NewSitePresenter() *SitePresenter {
	return &SitePresenter{}
}

// ToSites converts sites to view models, keeping their order.
func (p *SitePresenter) ToSites(sites []sharepoint.Site) []SiteVM {
	viewModels := make([]SiteVM, len(sites))
	for i, site := range sites {
		viewModels[i] = SiteVM{Title: site.Title, URL: site.URL, Path: site.Path}
	}
	return viewModels
}
