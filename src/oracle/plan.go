package oracle

import (
	"encoding/json"
	"strings"

	"github.com/bitly/go-simplejson"
	log "github.com/sirupsen/logrus"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

// ExtractFullScans walks a SQL Monitor JSON report and returns one record
// per full-table-scan plan step. The report nesting varies between Oracle
// releases, so the walk descends every map and slice and recognizes plan
// steps by their fields rather than by their position.
func ExtractFullScans(sqlID string, reportJSON []byte) ([]models.FullScanRecord, error) {
	js, err := simplejson.NewJson(reportJSON)
	if err != nil {
		return nil, err
	}

	w := &planWalk{sqlID: sqlID}
	w.visit(js)

	records := make([]models.FullScanRecord, 0, len(w.records))
	for _, rec := range w.records {
		rec.ParallelDegree = w.maxDOP
		records = append(records, rec)
	}
	return records, nil
}

type planWalk struct {
	sqlID    string
	planHash int64
	maxDOP   int
	records  []models.FullScanRecord
}

func (w *planWalk) visit(js *simplejson.Json) {
	if hash, err := js.Get("plan_hash_value").Int64(); err == nil && hash != 0 {
		w.planHash = hash
	}
	if dop, err := js.Get("dop").Int(); err == nil && dop > w.maxDOP {
		w.maxDOP = dop
	}

	operation, _ := js.Get("operation").String()
	options, _ := js.Get("options").String()
	if operation != "" {
		if strings.HasPrefix(operation, "PX ") && w.maxDOP == 0 {
			// PX steps without an explicit dop still mean the plan runs
			// parallel.
			w.maxDOP = 2
		}
		if operation == "TABLE ACCESS" && options == "FULL" {
			object, _ := js.Get("object").String()
			if object == "" {
				object, _ = js.Get("object_name").String()
			}
			owner, _ := js.Get("object_owner").String()
			if owner == "" {
				owner, _ = js.Get("owner").String()
			}
			bytes, _ := js.Get("bytes").Int64()
			w.records = append(w.records, models.FullScanRecord{
				SQLID:         w.sqlID,
				PlanHashValue: w.planHash,
				ObjectOwner:   owner,
				ObjectName:    object,
				Operation:     operation + " " + options,
				SegmentMB:     float64(bytes) / (1 << 20),
			})
		}
	}

	if m, err := js.Map(); err == nil {
		for _, value := range m {
			w.visitValue(value)
		}
	}
}

func (w *planWalk) visitValue(value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			log.Warnf("error re-marshaling plan node: %v", err)
			return
		}
		node, err := simplejson.NewJson(raw)
		if err != nil {
			log.Warnf("error parsing plan node: %v", err)
			return
		}
		w.visit(node)
	case []interface{}:
		for _, element := range v {
			w.visitValue(element)
		}
	}
}
