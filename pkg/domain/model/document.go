package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ExtractionFailedSentinel is stored as document contents when PDF text
// extraction fails. Units carrying it are never embedded.
const ExtractionFailedSentinel = "[PDF text extraction failed]"

// MinDocumentTextLen is the minimum content length (after trimming) for a
// document unit to be worth embedding.
const MinDocumentTextLen = 10

// ChunkSize is the maximum size in runes of a single embeddable chunk.
const ChunkSize = 1000

// DocumentUnit is one chunk of extracted text from a single CO record.
// Units are created by the extraction step, validated by the index builder,
// and never mutated afterwards. Re-running the builder supersedes them.
type DocumentUnit struct {
	BuildingID string
	DocumentID string
	SourceLink string
	Address    string
	Text       string
}

// Validate reports whether the unit is eligible for embedding.
func (u *DocumentUnit) Validate() error {
	if u.BuildingID == "" {
		return goerr.New("document unit has no building ID", goerr.V("documentID", u.DocumentID))
	}
	if u.Text == ExtractionFailedSentinel {
		return goerr.New("document text is a failed extraction", goerr.V("documentID", u.DocumentID))
	}
	if len(strings.TrimSpace(u.Text)) <= MinDocumentTextLen {
		return goerr.New("document text too short to embed",
			goerr.V("documentID", u.DocumentID),
			goerr.V("length", len(u.Text)),
		)
	}
	return nil
}

// SplitDocument splits the contents of one CO record into embeddable units of
// at most ChunkSize runes, breaking on whitespace where possible. Short
// contents yield a single unit. The split never validates; callers filter
// with Validate afterwards.
func SplitDocument(buildingID, documentID, sourceLink, address, text string) []*DocumentUnit {
	runes := []rune(text)
	if len(runes) <= ChunkSize {
		return []*DocumentUnit{{
			BuildingID: buildingID,
			DocumentID: documentID,
			SourceLink: sourceLink,
			Address:    address,
			Text:       text,
		}}
	}

	var units []*DocumentUnit
	for start := 0; start < len(runes); {
		end := start + ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Back up to the last whitespace so words stay intact.
			cut := end
			for cut > start && !isSpace(runes[cut-1]) {
				cut--
			}
			if cut > start {
				end = cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			units = append(units, &DocumentUnit{
				BuildingID: buildingID,
				DocumentID: documentID,
				SourceLink: sourceLink,
				Address:    address,
				Text:       chunk,
			})
		}
		start = end
	}

	return units
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
