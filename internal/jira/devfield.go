package jira

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielolaszy/prlink/pkg/models"
	"github.com/tidwall/gjson"
)

// developmentJSONMarker precedes the JSON summary embedded in the development
// field, e.g. `{pullrequest={...}, json={"cachedValue":{...}}}`.
const developmentJSONMarker = "json="

// ParseDevelopmentField extracts the pull request summary from the string form
// of the development custom field. It returns nil when the field carries no
// pull request summary and an error when the embedded JSON is malformed.
//
// The field format is owned by the JIRA development integration and is not
// documented; this is the only place that knows about it.
func ParseDevelopmentField(value string) (*models.DevelopmentInfo, error) {
	idx := strings.Index(value, developmentJSONMarker)
	if idx < 0 {
		return nil, nil
	}

	// The decoder stops after the first complete value, so trailing text of
	// the surrounding field is ignored.
	var blob json.RawMessage
	decoder := json.NewDecoder(strings.NewReader(value[idx+len(developmentJSONMarker):]))
	if err := decoder.Decode(&blob); err != nil {
		return nil, fmt.Errorf("malformed development field: %w", err)
	}

	summary := gjson.GetBytes(blob, "cachedValue.summary.pullrequest")
	if !summary.Exists() {
		return nil, nil
	}

	count := int(summary.Get("overall.count").Int())
	info := &models.DevelopmentInfo{
		HasPRs:      count > 0,
		PRCount:     count,
		PRState:     summary.Get("overall.state").String(),
		LastUpdated: summary.Get("overall.lastUpdated").String(),
	}
	summary.Get("byInstanceType").ForEach(func(key, _ gjson.Result) bool {
		info.Sources = append(info.Sources, key.String())
		return true
	})
	return info, nil
}
