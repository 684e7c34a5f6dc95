package api

import (
	"fmt"
	"net/http"

	"tourbook/internal/export"
	"tourbook/internal/service"

	"github.com/labstack/echo/v4"
)

type guideStatusRequest struct {
	Status string `json:"status"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// bindJSON decodes the request body; malformed JSON maps to 400 invalid_body.
func bindJSON(c echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func (s *HTTPServer) handleCreatePaymentIntent(c echo.Context) error {
	var input service.PaymentIntentInput
	if err := bindJSON(c, &input); err != nil {
		return err
	}
	intent, err := s.services.Bookings.CreatePaymentIntent(c.Request().Context(), identityFrom(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paymentIntentResponse{ClientSecret: intent.ClientSecret})
}

func (s *HTTPServer) handleCreateBooking(c echo.Context) error {
	var input service.CreateBookingInput
	if err := bindJSON(c, &input); err != nil {
		return err
	}
	booking, err := s.services.Bookings.CreateBooking(c.Request().Context(), identityFrom(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, booking)
}

func (s *HTTPServer) handleListOwnBookings(c echo.Context) error {
	bookings, err := s.services.Bookings.ListOwnBookings(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookings)
}

func (s *HTTPServer) handleListAllBookings(c echo.Context) error {
	bookings, err := s.services.Bookings.ListAllBookings(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookings)
}

func (s *HTTPServer) handleListGuideBookings(c echo.Context) error {
	bookings, err := s.services.Bookings.ListGuideBookings(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookings)
}

func (s *HTTPServer) handleGetBooking(c echo.Context) error {
	booking, err := s.services.Bookings.GetBooking(c.Request().Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

func (s *HTTPServer) handleUpdateBooking(c echo.Context) error {
	var input service.UpdateBookingInput
	if err := bindJSON(c, &input); err != nil {
		return err
	}
	booking, err := s.services.Bookings.UpdateBooking(c.Request().Context(), identityFrom(c), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

func (s *HTTPServer) handleCancelBooking(c echo.Context) error {
	booking, err := s.services.Bookings.CancelBooking(c.Request().Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

func (s *HTTPServer) handleGuideUpdateStatus(c echo.Context) error {
	var req guideStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	booking, err := s.services.Bookings.GuideUpdateStatus(c.Request().Context(), identityFrom(c), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

func (s *HTTPServer) handleAdminCreateBooking(c echo.Context) error {
	var input service.AdminCreateBookingInput
	if err := bindJSON(c, &input); err != nil {
		return err
	}
	booking, err := s.services.Bookings.AdminCreateBooking(c.Request().Context(), identityFrom(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, booking)
}

func (s *HTTPServer) handleAdminUpdateBooking(c echo.Context) error {
	var input service.AdminUpdateBookingInput
	if err := bindJSON(c, &input); err != nil {
		return err
	}
	booking, err := s.services.Bookings.AdminUpdateBooking(c.Request().Context(), identityFrom(c), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

func (s *HTTPServer) handleAdminDeleteBooking(c echo.Context) error {
	if err := s.services.Bookings.AdminDeleteBooking(c.Request().Context(), identityFrom(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) handleListBookingEvents(c echo.Context) error {
	events, err := s.services.Bookings.ListBookingEvents(c.Request().Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleExportBookings(c echo.Context) error {
	window, err := s.services.Bookings.BookingsInRange(c.Request().Context(), identityFrom(c), c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}

	wb, err := export.NewBookingsWorkbook(window.From, window.To, window.Bookings)
	if err != nil {
		return err
	}
	defer wb.Close()

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx", window.From.Format("2006-01-02"), window.To.Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().WriteHeader(http.StatusOK)
	return wb.Write(c.Response())
}
