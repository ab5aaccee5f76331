// Package model defines the data structures passed between the formatter and the delivery client, including Report, Attachment and Delivery. A Report is built once per failed call and discarded after delivery.
package model

import "time"

type Attachment struct {
	Filename string
	Data     []byte
}

type Report struct {
	Header     string
	FuncName   string
	Traceback  string
	Text       string
	Attachment *Attachment
	CreatedAt  time.Time
}

// IsAttachment reports whether the report is sent as a document.
func (r Report) IsAttachment() bool {
	return r.Attachment != nil
}

type Delivery struct {
	ChatIDs               []int64
	Report                Report
	ParseMode             string
	DisableWebPagePreview bool
	DisableNotification   bool
}
