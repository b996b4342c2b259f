package utils

import (
	"fmt"

	"github.com/furnimall/furnimall_backend/models"
)

// FormatChannelCode builds the human-readable channel code from the
// type prefix and the per-(system, type) sequence number.
// Format: {PREFIX}{SEQ} with the sequence zero-padded to 3 digits.
// Example: AG001, DS014, SC002
func FormatChannelCode(channelType string, seq int64) string {
	return fmt.Sprintf("%s%03d", models.ChannelCodePrefix(channelType), seq)
}
