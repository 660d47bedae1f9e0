package core

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"punchexport.com/punchexport/utils"
)

// Document is one warehouse's export batch.
type Document struct {
	XMLName xml.Name `xml:"tXML"`
	Header  Header   `xml:"Header"`
	Message Message  `xml:"Message"`
}

type Header struct {
	Source      string `xml:"Source"`
	BatchID     string `xml:"Batch_ID"`
	MessageType string `xml:"Message_Type"`
	CompanyID   string `xml:"Company_ID"`
	Locale      string `xml:"Msg_Locale"`
}

type Message struct {
	TimeAndAttendance TimeAndAttendance `xml:"TimeAndAttendance"`
}

type TimeAndAttendance struct {
	Data []TASData `xml:"TASData"`
}

// TASData holds exactly one transaction.
type TASData struct {
	Merge  *MergeRange         `xml:"MergeRange,omitempty"`
	Delete *DeleteClockInRange `xml:"DeleteClockInRange,omitempty"`
}

type MergeRange struct {
	TranNumber        string          `xml:"TranNumber"`
	Warehouse         string          `xml:"Warehouse"`
	EmployeeUserID    string          `xml:"EmployeeUserId"`
	StartDateForMerge string          `xml:"StartDateForMerge"`
	EndDateForMerge   string          `xml:"EndDateForMerge"`
	ClockInClockOut   ClockInClockOut `xml:"MergeClockInClockOut"`
	Break             *BreakRange     `xml:"MergeBreakStartBreakEnd,omitempty"`
}

type ClockInClockOut struct {
	EmpClockIn  string `xml:"EmpClockIn,omitempty"`
	EmpClockOut string `xml:"EmpClockOut,omitempty"`
}

type BreakRange struct {
	BreakStartTime string `xml:"BreakStartTime,omitempty"`
	BreakEndTime   string `xml:"BreakEndTime,omitempty"`
	Activity       string `xml:"Activity"`
}

type DeleteClockInRange struct {
	TranNumber      string `xml:"TranNumber"`
	Warehouse       string `xml:"Warehouse"`
	EmployeeUserID  string `xml:"EmployeeUserId"`
	StartDateForDel string `xml:"StartDateForDel"`
	EndDateForDel   string `xml:"EndDateForDel"`
}

const unpaidBreakActivity = "UNPAIDBRK"

func (d *Document) Transactions() int {
	return len(d.Message.TimeAndAttendance.Data)
}

func (d *Document) add(data TASData) string {
	tran := formatTranNumber(d.Transactions() + 1)
	if data.Merge != nil {
		data.Merge.TranNumber = tran
	}
	if data.Delete != nil {
		data.Delete.TranNumber = tran
	}
	d.Message.TimeAndAttendance.Data = append(d.Message.TimeAndAttendance.Data, data)
	return tran
}

func formatTranNumber(n int) string {
	return fmt.Sprintf("%09d", n)
}

// Encode renders the document with an XML declaration and two-space indent.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// FileName expands {warehouse}, {timestamp} and {batch} in format.
func FileName(format, warehouse string, ts time.Time, batchID int64) string {
	return strings.NewReplacer(
		"{warehouse}", warehouse,
		"{timestamp}", ts.Format(utils.FileTimestampLayout),
		"{batch}", strconv.FormatInt(batchID, 10),
	).Replace(format)
}
