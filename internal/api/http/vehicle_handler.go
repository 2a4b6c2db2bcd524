package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/service"
)

// VehicleHandler serves the public catalog and the employee fleet routes.
type VehicleHandler struct {
	vehicleSvc service.VehicleService
	imageSvc   service.ImageStorageService
}

func NewVehicleHandler(vehicleSvc service.VehicleService, imageSvc service.ImageStorageService) *VehicleHandler {
	return &VehicleHandler{vehicleSvc: vehicleSvc, imageSvc: imageSvc}
}

type vehicleRequest struct {
	Make                 string               `json:"make"`
	Model                string               `json:"model"`
	Year                 int32                `json:"year"`
	RegistrationNumber   string               `json:"registration_number"`
	Category             string               `json:"category"`
	Seats                int32                `json:"seats"`
	Transmission         string               `json:"transmission"`
	FuelType             string               `json:"fuel_type"`
	Description          string               `json:"description"`
	DailyRate            decimal.Decimal      `json:"daily_rate"`
	PromoRate            decimal.NullDecimal  `json:"promo_rate"`
	PromoEndsAt          *time.Time           `json:"promo_ends_at"`
	InsuranceRate        decimal.Decimal      `json:"insurance_rate"`
	PremiumInsuranceRate decimal.NullDecimal  `json:"premium_insurance_rate"`
	Status               domain.VehicleStatus `json:"status"`
	LocationID           *int32               `json:"location_id"`
}

func (req vehicleRequest) toDomain() *domain.Vehicle {
	return &domain.Vehicle{
		Make:                 req.Make,
		Model:                req.Model,
		Year:                 req.Year,
		RegistrationNumber:   req.RegistrationNumber,
		Category:             req.Category,
		Seats:                req.Seats,
		Transmission:         req.Transmission,
		FuelType:             req.FuelType,
		Description:          req.Description,
		DailyRate:            req.DailyRate,
		PromoRate:            req.PromoRate,
		PromoEndsAt:          req.PromoEndsAt,
		InsuranceRate:        req.InsuranceRate,
		PremiumInsuranceRate: req.PremiumInsuranceRate,
		Status:               req.Status,
		LocationID:           req.LocationID,
	}
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	q := r.URL.Query()
	filter := domain.VehicleFilter{
		Status:   domain.VehicleStatus(q.Get("status")),
		City:     q.Get("city"),
		Page:     page,
		PageSize: pageSize,
	}
	if v := q.Get("location_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			badRequest(w, r, "location_id must be an integer")
			return
		}
		filter.LocationID = int32(id)
	}
	if v := q.Get("max_daily_rate"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			badRequest(w, r, "max_daily_rate must be a number")
			return
		}
		filter.MaxDailyRate = decimal.NewNullDecimal(rate)
	}

	vehicles, total, err := h.vehicleSvc.ListVehicles(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(vehicles, total, page, pageSize))
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	vehicle, err := h.vehicleSvc.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	vehicle := req.toDomain()
	if err := h.vehicleSvc.CreateVehicle(r.Context(), vehicle); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req vehicleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	vehicle := req.toDomain()
	vehicle.ID = id
	if err := h.vehicleSvc.UpdateVehicle(r.Context(), vehicle); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if err := h.vehicleSvc.DeleteVehicle(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status domain.VehicleStatus `json:"status"`
}

func (h *VehicleHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	vehicle, err := h.vehicleSvc.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}
