package domain

import "time"

// Offset is the persisted read position of a followed event file.
// It lets a restarted shipper resume after the last line it pushed.
type Offset struct {
	// File is the path of the followed file
	File string `json:"file"`

	// Offset is the byte position just past the last consumed line
	Offset int64 `json:"offset"`

	// UpdatedAt is when the position was last saved
	UpdatedAt time.Time `json:"updated_at"`
}

// Advance moves the offset forward by n bytes and stamps the update time.
func (o *Offset) Advance(n int64, now time.Time) {
	o.Offset += n
	o.UpdatedAt = now
}

// Matches reports whether the offset belongs to the given file.
func (o Offset) Matches(file string) bool {
	return o.File == file
}
