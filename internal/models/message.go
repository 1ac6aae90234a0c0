package models

import "strings"

// MediaItem is a single attachment on an inbound WhatsApp message
type MediaItem struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// WhatsAppMessage is one inbound webhook delivery
type WhatsAppMessage struct {
	MessageSid string      `json:"message_sid"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Body       string      `json:"body"`
	NumMedia   int         `json:"num_media"`
	Media      []MediaItem `json:"media"`
}

// AddMedia records an attachment. An item whose content type was already seen
// replaces the earlier one in place, so each content type maps to one URL.
func (m *WhatsAppMessage) AddMedia(url, contentType string) {
	if url == "" {
		return
	}
	for i := range m.Media {
		if m.Media[i].ContentType == contentType {
			m.Media[i].URL = url
			return
		}
	}
	m.Media = append(m.Media, MediaItem{URL: url, ContentType: contentType})
}

// HasMedia reports whether the message carries at least one attachment
func (m *WhatsAppMessage) HasMedia() bool {
	return m.NumMedia > 0 && len(m.Media) > 0
}

// SenderPhone returns the sender without the whatsapp: channel prefix
func (m *WhatsAppMessage) SenderPhone() string {
	return strings.TrimSpace(strings.TrimPrefix(m.From, "whatsapp:"))
}
