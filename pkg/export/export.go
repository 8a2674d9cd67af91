// Package export writes delivery records in spreadsheet friendly formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/dk0164/TMS-MONITOR/core/model"
)

// Header is the CSV header row. It uses the source column labels so the file
// can be pasted back into the delivery sheet.
var Header = []string{
	model.LabelRecordedAt,
	model.LabelVehicle,
	model.LabelCustomer,
	model.LabelLocation,
	model.LabelRequestedDate,
	model.LabelTimeWindow,
	model.LabelDistance,
	model.LabelCost,
	model.LabelStatus,
}

// WriteJSON writes records to w as a JSON array.
func WriteJSON(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteCSV writes records to w in CSV format, header first. Values are
// written exactly as received from the source.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.RecordedAt,
			r.Vehicle,
			r.Customer,
			r.Location,
			r.RequestedDate,
			r.TimeWindow,
			r.Distance,
			r.Cost,
			r.Status,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
