package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// ToWatermill copies the properties into the headers of an outgoing audit
// message.
func ToWatermill(metadata Metadata) message.Metadata {
	if len(metadata) == 0 {
		return message.Metadata{}
	}

	wm := make(message.Metadata, len(metadata))
	for k, v := range metadata {
		wm[k] = v
	}
	return wm
}
