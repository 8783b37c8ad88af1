package sharepoint

// BaseTemplateGenericList is the template of lists created by the writer.
const BaseTemplateGenericList = 100

// Upload limits. Files above MaxFileSizeContinuousUpload go through an upload session.
const (
	MaxFileSizeContinuousUpload = 262144000
	FileUploadChunkSize         = 131072000
)

// Write modes for list datasets
const (
	WriteModeCreate = "create"
	WriteModeAppend = "append"
)

// DefaultRoot is the document library used when none is configured.
const DefaultRoot = "Shared Documents"

// ForbiddenPathChars cannot appear in file or folder names.
var ForbiddenPathChars = []string{`"`, "*", ":", "<", ">", "?", `\`, "|"}
