package domain

import "time"

// Location is a rental point. Coordinates are optional; distance to a point
// without them is treated as zero.
type Location struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

func (l *Location) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

func (l *Location) Validate() error {
	var details []string
	if l.Name == "" {
		details = append(details, "name is required")
	}
	if l.City == "" {
		details = append(details, "city is required")
	}
	if (l.Latitude == nil) != (l.Longitude == nil) {
		details = append(details, "latitude and longitude must be given together")
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		details = append(details, "latitude must be between -90 and 90")
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		details = append(details, "longitude must be between -180 and 180")
	}
	if len(details) > 0 {
		return NewValidationError(details...)
	}
	return nil
}
