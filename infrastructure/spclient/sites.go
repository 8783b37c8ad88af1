package spclient

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"spconnect/domain/sharepoint"
)

// AvailableSitePaths lists the site collections visible to the account using the search API.
func (c *SharePointClientImpl) AvailableSitePaths(ctx context.Context) ([]sharepoint.Site, error) {
	query := c.site.Origin + "/_api/search/query?querytext='contentclass:STS_Site'" +
		"&selectproperties='Title,Path'&rowlimit=500&trimduplicates=false"
	resp, err := c.get(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search sites: %w", err)
	}

	var env verboseEntity[searchApiData]
	if err := resp.JSON(&env); err != nil {
		return nil, fmt.Errorf("decode site search: %w", err)
	}

	var sites []sharepoint.Site
	for _, row := range env.D.Query.PrimaryQueryResult.RelevantResults.Table.Rows.Results {
		var site sharepoint.Site
		for _, cell := range row.Cells.Results {
			switch cell.Key {
			case "Title":
				site.Title = cell.Value
			case "Path":
				site.URL = cell.Value
			}
		}
		if site.URL == "" {
			continue
		}
		site.Path = sitePathFromURL(site.URL)
		if site.Path == "" {
			continue
		}
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].Path < sites[j].Path })
	return sites, nil
}

// sitePathFromURL returns "{type}/{name}" for https://tenant.sharepoint.com/{type}/{name}[/...].
func sitePathFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" {
		return ""
	}
	return segments[0] + "/" + segments[1]
}
