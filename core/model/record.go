package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Source field labels as emitted by the logistics sheet.
const (
	LabelRecordedAt    = "วันที่บันทึกข้อมูล"
	LabelVehicle       = "ทะเบียนรถ"
	LabelCustomer      = "Customer"
	LabelLocation      = "Location"
	LabelRequestedDate = "วันที่ต้องการส่งสินค้า"
	LabelTimeWindow    = "ช่วงเวลา"
	LabelDistance      = "ระยะทางไปกลับ (km)"
	LabelCost          = "ค่าใช้จ่ายตาม Supplier"
	LabelStatus        = "สถานะการขนส่ง"
)

// Delivery statuses known to the dashboard. The set is open: the source may
// send any other value.
const (
	StatusDelivered = "ส่งแล้ว"
	StatusCancelled = "ยกเลิก"
	StatusInTransit = "ระหว่างส่ง"
	StatusPending   = "รอดำเนินการ"
	StatusPlanned   = "วางแผน"
)

// Record is one delivery entry. Dates, distance and cost are kept as the
// source sent them; interpretation happens downstream.
type Record struct {
	RecordedAt    string `json:"recorded_at" yaml:"recorded_at"`
	Vehicle       string `json:"vehicle" yaml:"vehicle"`
	Customer      string `json:"customer" yaml:"customer"`
	Location      string `json:"location" yaml:"location"`
	RequestedDate string `json:"requested_date" yaml:"requested_date"`
	TimeWindow    string `json:"time_window,omitempty" yaml:"time_window,omitempty"`
	Distance      string `json:"distance_km" yaml:"distance_km"`
	Cost          string `json:"cost" yaml:"cost"`
	Status        string `json:"status" yaml:"status"`
}

// RecordFromFields maps a labelled source row onto a Record. Unknown labels
// are ignored and missing ones leave the field empty.
func RecordFromFields(fields map[string]json.RawMessage) Record {
	return Record{
		RecordedAt:    text(fields[LabelRecordedAt]),
		Vehicle:       text(fields[LabelVehicle]),
		Customer:      text(fields[LabelCustomer]),
		Location:      text(fields[LabelLocation]),
		RequestedDate: text(fields[LabelRequestedDate]),
		TimeWindow:    text(fields[LabelTimeWindow]),
		Distance:      text(fields[LabelDistance]),
		Cost:          text(fields[LabelCost]),
		Status:        text(fields[LabelStatus]),
	}
}

// text renders a raw JSON value as display text. Strings are unquoted,
// numbers and booleans keep their literal form, null and objects become "".
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 'n', '{', '[':
		return ""
	default:
		return strings.TrimSpace(string(raw))
	}
}

// Vocabulary lists the selectable values for each categorical filter.
type Vocabulary struct {
	Cars      []string `json:"cars" yaml:"cars"`
	Customers []string `json:"customers" yaml:"customers"`
	Statuses  []string `json:"statuses" yaml:"statuses"`
}

// Normalize replaces nil lists with empty ones so the vocabulary always
// serialises as arrays.
func (v Vocabulary) Normalize() Vocabulary {
	if v.Cars == nil {
		v.Cars = []string{}
	}
	if v.Customers == nil {
		v.Customers = []string{}
	}
	if v.Statuses == nil {
		v.Statuses = []string{}
	}
	return v
}
