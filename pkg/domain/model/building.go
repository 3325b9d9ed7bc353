package model

// Building is one row of buildings.json, keyed by its BIN (Building
// Identification Number). Buildings without an address are skipped by the
// ingestion pipeline since their records cannot be cited usefully.
type Building struct {
	Address        string `json:"has_address"`
	City           string `json:"has_city"`
	Number         string `json:"has_number"`
	COCount        int    `json:"co_count"`
	ViolationCount int    `json:"violation_count"`
}

// CORecord is a single Certificate of Occupancy record as fetched from the
// IMS API and enriched by the extract/summarize commands. Contents holds the
// extracted PDF text, or ExtractionFailedSentinel when extraction failed.
type CORecord struct {
	Number   string `json:"coa_number"`
	FileLink string `json:"coa_file_link"`
	Contents string `json:"coa_file_contents,omitempty"`
	Summary  string `json:"coa_file_summary,omitempty"`
}

// COData is the per-building co.json document.
type COData struct {
	BIN     string      `json:"bin_num"`
	Records []*CORecord `json:"coa_records"`
}

// DocumentUnits expands all CO records of a building into embeddable units,
// chunking long contents. Invalid units (failed extractions, trivial text)
// are still included; the index builder filters them.
func (c *COData) DocumentUnits(address string) []*DocumentUnit {
	var units []*DocumentUnit
	for _, rec := range c.Records {
		units = append(units, SplitDocument(c.BIN, rec.Number, rec.FileLink, address, rec.Contents)...)
	}
	return units
}
