// Package seed loads company seed files and normalizes their heterogeneous
// records into canonical CompanyRecords at the input boundary, before any
// crawling begins. The crawler core itself never sees raw seed shapes.
package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"company-crawler/pkg/models"
	"company-crawler/pkg/utils"
)

// rawRecord mirrors the loose shapes seed files have accumulated: some rows
// carry "website", older ones "homepage", scraped ones "source_url" or "url".
type rawRecord struct {
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	Website     string `json:"website"`
	Homepage    string `json:"homepage"`
	SourceURL   string `json:"source_url"`
	URL         string `json:"url"`
}

// seedFile accepts either a bare JSON array of records or an object with a
// "companies" key.
type seedFile struct {
	Companies []rawRecord `json:"companies"`
}

// Load reads a seed file and returns normalized records in file order.
func Load(path string) ([]models.CompanyRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading seed file %s: %v", utils.ErrFilesystem, path, err)
	}

	var rows []rawRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		var wrapped seedFile
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: seed file %s is neither a record array nor a companies object: %v",
				utils.ErrParsing, path, err)
		}
		rows = wrapped.Companies
	}

	records := make([]models.CompanyRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, normalize(row))
	}
	return records, nil
}

// normalize maps one raw seed row into a canonical CompanyRecord. This is the
// single place where the website/homepage/source_url/url field priority is
// resolved.
func normalize(row rawRecord) models.CompanyRecord {
	id := row.CompanyID
	if id == "" {
		id = utils.Slugify(row.CompanyName)
	} else {
		id = utils.Slugify(id)
	}

	name := row.CompanyName
	if name == "" {
		name = id
	}

	website := row.Website
	for _, alt := range []string{row.Homepage, row.SourceURL, row.URL} {
		if website != "" {
			break
		}
		website = alt
	}

	return models.CompanyRecord{
		CompanyID:   id,
		CompanyName: name,
		Website:     utils.NormalizeBaseURL(website),
	}
}

// LoadOverrides reads a JSON map of company_id -> official base URL. A
// missing path yields an empty map, not an error.
func LoadOverrides(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: reading overrides file %s: %v", utils.ErrFilesystem, path, err)
	}
	var overrides map[string]string
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("%w: overrides file %s: %v", utils.ErrParsing, path, err)
	}
	return overrides, nil
}

// ApplyOverrides replaces record websites with their override URLs, if any.
// Returns the records slice for chaining.
func ApplyOverrides(records []models.CompanyRecord, overrides map[string]string) []models.CompanyRecord {
	for i := range records {
		if override, ok := overrides[records[i].CompanyID]; ok && override != "" {
			records[i].Website = utils.NormalizeBaseURL(override)
		}
	}
	return records
}
