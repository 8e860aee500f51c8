package report

import (
	"encoding/json"
	"fmt"

	cerrors "github.com/otherjamesbrown/convrep/pkg/errors"
)

// ManifestName is the object key of the ingestion manifest, at the bucket
// root so the BI dataset definition never changes.
const ManifestName = "manifest.json"

// Manifest is the BI ingestion manifest: the URIs of the CSV artifacts plus
// fixed upload settings. Field shapes follow the ingestion API, including
// containsHeader as a string.
type Manifest struct {
	FileLocations []FileLocation `json:"fileLocations"`
	Settings      UploadSettings `json:"globalUploadSettings"`
}

type FileLocation struct {
	URIs []string `json:"URIs"`
}

type UploadSettings struct {
	Format         string `json:"format"`
	ContainsHeader string `json:"containsHeader"`
}

// BuildManifest assembles a manifest for the given artifact URIs. At least
// one URI is required; an empty manifest would wipe the dataset on refresh.
func BuildManifest(uris []string) (Manifest, error) {
	if len(uris) == 0 {
		return Manifest{}, fmt.Errorf("%w: manifest requires at least one artifact URI", cerrors.ErrValidation)
	}
	for i, uri := range uris {
		if uri == "" {
			return Manifest{}, fmt.Errorf("%w: empty artifact URI at index %d", cerrors.ErrValidation, i)
		}
	}
	return Manifest{
		FileLocations: []FileLocation{{URIs: uris}},
		Settings:      UploadSettings{Format: "CSV", ContainsHeader: "true"},
	}, nil
}

// Encode renders the manifest as indented JSON.
func (m Manifest) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
