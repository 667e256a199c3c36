package dto

// RegisterDriverRequest creates a driver profile
type RegisterDriverRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	VehiclePlate string `json:"vehicle_plate"`
}

// CreateDeliveryRequest creates a delivery order
type CreateDeliveryRequest struct {
	CustomerID       string   `json:"customer_id" binding:"required,uuid"`
	PickupLatitude   float64  `json:"pickup_latitude" binding:"required,min=-90,max=90"`
	PickupLongitude  float64  `json:"pickup_longitude" binding:"required,min=-180,max=180"`
	DropoffLatitude  *float64 `json:"dropoff_latitude" binding:"omitempty,min=-90,max=90"`
	DropoffLongitude *float64 `json:"dropoff_longitude" binding:"omitempty,min=-180,max=180"`
	PickupAddress    string   `json:"pickup_address"`
	DropoffAddress   string   `json:"dropoff_address"`
}

// UpdateAvailabilityRequest toggles driver availability
type UpdateAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

// OfferResponse describes an opened delivery offer
type OfferResponse struct {
	DeliveryID string   `json:"delivery_id"`
	Candidates []string `json:"candidates"`
	ExpiresAt  string   `json:"expires_at"`
}

// ErrorResponse is the REST error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
