package acquisition

import (
	"fmt"
	"regexp"
	"time"

	"bin-ranges/internal/domain"
)

var (
	datePattern    = regexp.MustCompile(`\d{8}`)
	versionPattern = regexp.MustCompile(`V\d{2}`)
)

const (
	fileDateLayout = "20060102"
	isoDateLayout  = "2006-01-02"
)

// FileMeta is the metadata carried by a published file name.
type FileMeta struct {
	Name    string
	Path    string // remote path
	Size    int64
	Date    string // ISO yyyy-mm-dd
	Version domain.Version
}

// StagingKey is the object key the file is uploaded under.
func (m FileMeta) StagingKey() string {
	return m.Date + "/" + m.Name
}

// ParseFileName extracts the publish date and format version from a file name.
// A missing date or version token is ErrValidation; a date token that is not a
// real yyyyMMdd date is ErrFormat. Unrecognized versions map to UNKNOWN.
func ParseFileName(name string) (FileMeta, error) {
	dateToken := datePattern.FindString(name)
	if dateToken == "" {
		return FileMeta{}, fmt.Errorf("%w: no date found in file name %s", domain.ErrValidation, name)
	}
	date, err := time.Parse(fileDateLayout, dateToken)
	if err != nil {
		return FileMeta{}, fmt.Errorf("%w: invalid date %s in file name %s: %v", domain.ErrFormat, dateToken, name, err)
	}

	versionToken := versionPattern.FindString(name)
	if versionToken == "" {
		return FileMeta{}, fmt.Errorf("%w: no version found in file name %s", domain.ErrValidation, name)
	}

	return FileMeta{
		Name:    name,
		Date:    date.Format(isoDateLayout),
		Version: domain.VersionFromString(versionToken),
	}, nil
}
