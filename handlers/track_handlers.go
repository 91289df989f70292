// api/handlers/track_handlers.go
package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pulsetrack/api/geoip"
	"pulsetrack/api/models"
	"pulsetrack/api/utils"
)

// EventQueue is the intake side of the batching queue.
type EventQueue interface {
	Enqueue(event models.EnrichedEvent) bool
}

// GeoResolver resolves an IP to geolocation attributes.
type GeoResolver interface {
	Lookup(ctx context.Context, ip string) (*geoip.Info, error)
}

type TrackHandlers struct {
	Queue   EventQueue
	Geo     GeoResolver
	ForceIP string
}

func NewTrackHandlers(q EventQueue, geo GeoResolver, forceIP string) *TrackHandlers {
	return &TrackHandlers{
		Queue:   q,
		Geo:     geo,
		ForceIP: forceIP,
	}
}

// Track is the beacon endpoint: GET /track?data=<base64-payload>. The
// browser loads the response as an image, so the answer is always an
// empty 200; every failure is a server-side log line only.
func (h *TrackHandlers) Track(c *gin.Context) {
	c.Status(http.StatusOK)

	rawData := c.Query("data")
	if rawData == "" {
		log.Println("track request without data parameter")
		return
	}

	trkData, err := models.DecodeTracking(rawData)
	if err != nil {
		log.Printf("error decoding tracking payload: %v", err)
		return
	}

	browserName, osName, deviceType := utils.ClassifyUserAgent(trkData.Action.UserAgent)

	ip, err := utils.ResolveClientIP(c.Request, h.ForceIP)
	if err != nil {
		log.Printf("error getting client IP: %v", err)
		return
	}

	// Geo is a soft enrichment: a dead oracle must not drop the event.
	var country, region string
	geoInfo, err := h.Geo.Lookup(c.Request.Context(), ip)
	if err != nil {
		log.Printf("error getting geo info for %s: %v", ip, err)
	} else {
		country = geoInfo.Country
		region = geoInfo.RegionName
	}

	event := models.EnrichedEvent{
		SiteID:         trkData.SiteID,
		Type:           trkData.Action.Type,
		UserID:         trkData.Action.Identity,
		Event:          trkData.Action.Event,
		Category:       trkData.Action.Category,
		Referrer:       trkData.Action.Referrer,
		ReferrerDomain: utils.ReferrerDomain(trkData.Action.Referrer),
		IsTouch:        trkData.Action.IsTouchDevice,
		BrowserName:    browserName,
		OSName:         osName,
		DeviceType:     deviceType,
		Country:        country,
		Region:         region,
	}

	h.Queue.Enqueue(event)
}
