package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tuningstudio/tuning/pkg/domain"
)

// CarRequest is the payload for adding or editing a car.
type CarRequest struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Generation   string `json:"generation,omitempty"`
	Year         int    `json:"year,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
	VIN          string `json:"vin,omitempty"`
	Color        string `json:"color,omitempty"`
}

// ListCars returns the signed-in user's cars.
func (c *Client) ListCars(ctx context.Context) ([]domain.Car, error) {
	var cars []domain.Car
	if err := c.getList(ctx, "/auth/cars/", &cars); err != nil {
		return nil, fmt.Errorf("client.ListCars: %w", err)
	}
	return cars, nil
}

// GetCar fetches one car.
func (c *Client) GetCar(ctx context.Context, id int64) (*domain.Car, error) {
	var car domain.Car
	if err := c.get(ctx, carPath(id), &car); err != nil {
		return nil, fmt.Errorf("client.GetCar: %w", err)
	}
	return &car, nil
}

// CreateCar adds a car to the garage.
func (c *Client) CreateCar(ctx context.Context, req CarRequest) (*domain.Car, error) {
	var car domain.Car
	if err := c.post(ctx, "/auth/cars/", req, &car); err != nil {
		return nil, fmt.Errorf("client.CreateCar: %w", err)
	}
	return &car, nil
}

// UpdateCar edits a car.
func (c *Client) UpdateCar(ctx context.Context, id int64, req CarRequest) (*domain.Car, error) {
	var car domain.Car
	if err := c.patch(ctx, carPath(id), req, &car); err != nil {
		return nil, fmt.Errorf("client.UpdateCar: %w", err)
	}
	return &car, nil
}

// DeleteCar removes a car.
func (c *Client) DeleteCar(ctx context.Context, id int64) error {
	if err := c.del(ctx, carPath(id), nil); err != nil {
		return fmt.Errorf("client.DeleteCar: %w", err)
	}
	return nil
}

// ListCarPhotos returns the photos of one car.
func (c *Client) ListCarPhotos(ctx context.Context, carID int64) ([]domain.CarPhoto, error) {
	params := url.Values{}
	params.Set("car_id", strconv.FormatInt(carID, 10))
	var photos []domain.CarPhoto
	if err := c.getList(ctx, "/auth/car-photos/?"+params.Encode(), &photos); err != nil {
		return nil, fmt.Errorf("client.ListCarPhotos: %w", err)
	}
	return photos, nil
}

// SetPrimaryCarPhoto marks a photo as the car's cover.
func (c *Client) SetPrimaryCarPhoto(ctx context.Context, photoID int64) error {
	body := map[string]bool{"is_primary": true}
	if err := c.patch(ctx, "/auth/car-photos/"+strconv.FormatInt(photoID, 10)+"/", body, nil); err != nil {
		return fmt.Errorf("client.SetPrimaryCarPhoto: %w", err)
	}
	return nil
}

func carPath(id int64) string {
	return "/auth/cars/" + strconv.FormatInt(id, 10) + "/"
}
