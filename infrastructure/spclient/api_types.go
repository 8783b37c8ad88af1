package spclient

import (
	"time"

	"spconnect/domain/sharepoint"
)

// ---------- Verbose OData envelopes ----------

type ODataResults[T any] struct {
	Results []T `json:"results"`
}

// verboseEntity is {"d": {...}}
type verboseEntity[T any] struct {
	D T `json:"d"`
}

// ---------- Lite models ----------

type contextInfoApiData struct {
	GetContextWebInformation struct {
		FormDigestValue          string `json:"FormDigestValue"`
		FormDigestTimeoutSeconds int    `json:"FormDigestTimeoutSeconds"`
		WebFullURL               string `json:"WebFullUrl"`
	} `json:"GetContextWebInformation"`
}

type folderApiData struct {
	Name              string `json:"Name"`
	ServerRelativeURL string `json:"ServerRelativeUrl"`
	ItemCount         int    `json:"ItemCount"`
	TimeLastModified  string `json:"TimeLastModified"`
}

func (f folderApiData) toDomain() sharepoint.Folder {
	return sharepoint.Folder{
		Name:              f.Name,
		ServerRelativeURL: f.ServerRelativeURL,
		ItemCount:         f.ItemCount,
		TimeLastModified:  f.TimeLastModified,
	}
}

type fileApiData struct {
	Name              string  `json:"Name"`
	ServerRelativeURL string  `json:"ServerRelativeUrl"`
	Length            flexInt `json:"Length"`
	TimeLastModified  string  `json:"TimeLastModified"`
	Exists            bool    `json:"Exists"`
}

func (f fileApiData) toDomain() sharepoint.File {
	return sharepoint.File{
		Name:              f.Name,
		ServerRelativeURL: f.ServerRelativeURL,
		Length:            int64(f.Length),
		TimeLastModified:  f.TimeLastModified,
		Exists:            f.Exists,
	}
}

type listApiData struct {
	ID                         string    `json:"Id"`
	Title                      string    `json:"Title"`
	EntityTypeName             string    `json:"EntityTypeName"`
	ListItemEntityTypeFullName string    `json:"ListItemEntityTypeFullName"`
	BaseTemplate               int       `json:"BaseTemplate"`
	LastItemModifiedDate       time.Time `json:"LastItemModifiedDate"`
	RootFolder                 *struct {
		ServerRelativeURL string `json:"ServerRelativeUrl"`
	} `json:"RootFolder"`
}

func (l listApiData) toDomain() *sharepoint.List {
	list := &sharepoint.List{
		ID:                         l.ID,
		Title:                      l.Title,
		EntityTypeName:             l.EntityTypeName,
		ListItemEntityTypeFullName: l.ListItemEntityTypeFullName,
		BaseTemplate:               l.BaseTemplate,
		LastItemModifiedDate:       l.LastItemModifiedDate,
	}
	if l.RootFolder != nil {
		list.RootFolderURL = l.RootFolder.ServerRelativeURL
	}
	return list
}

type fieldApiData struct {
	ID                 string `json:"Id"`
	StaticName         string `json:"StaticName"`
	InternalName       string `json:"InternalName"`
	EntityPropertyName string `json:"EntityPropertyName"`
	Title              string `json:"Title"`
	Description        string `json:"Description"`
	Hidden             bool   `json:"Hidden"`
	ReadOnlyField      bool   `json:"ReadOnlyField"`
	TypeAsString       string `json:"TypeAsString"`
}

func (f fieldApiData) toDomain() sharepoint.Field {
	return sharepoint.Field{
		ID:                 f.ID,
		StaticName:         f.StaticName,
		InternalName:       f.InternalName,
		EntityPropertyName: f.EntityPropertyName,
		Title:              f.Title,
		Description:        f.Description,
		Hidden:             f.Hidden,
		ReadOnlyField:      f.ReadOnlyField,
		TypeAsString:       f.TypeAsString,
	}
}

type viewApiData struct {
	ID    string `json:"Id"`
	Title string `json:"Title"`
}

type uploadOffsetApiData struct {
	StartUpload    *flexInt `json:"StartUpload"`
	ContinueUpload *flexInt `json:"ContinueUpload"`
}

// search API: d.query.PrimaryQueryResult.RelevantResults.Table.Rows.results[].Cells.results[]
type searchApiData struct {
	Query struct {
		PrimaryQueryResult struct {
			RelevantResults struct {
				Table struct {
					Rows ODataResults[struct {
						Cells ODataResults[struct {
							Key   string `json:"Key"`
							Value string `json:"Value"`
						}] `json:"Cells"`
					}] `json:"Rows"`
				} `json:"Table"`
			} `json:"RelevantResults"`
		} `json:"PrimaryQueryResult"`
	} `json:"query"`
}
