package api

import (
	"net/http"

	"tourbook/internal/service"

	"github.com/labstack/echo/v4"
)

func (s *HTTPServer) handleRegister(c echo.Context) error {
	var input service.RegisterInput
	if err := bindJSON(c, &input); err != nil {
		return err
	}
	session, err := s.services.Auth.Register(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *HTTPServer) handleLogin(c echo.Context) error {
	var input service.LoginInput
	if err := bindJSON(c, &input); err != nil {
		return err
	}
	session, err := s.services.Auth.Login(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (s *HTTPServer) handleMe(c echo.Context) error {
	user, err := s.services.Auth.Me(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *HTTPServer) handleCreateUser(c echo.Context) error {
	var input service.CreateUserInput
	if err := bindJSON(c, &input); err != nil {
		return err
	}
	user, err := s.services.Users.CreateUser(c.Request().Context(), identityFrom(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *HTTPServer) handleListUsers(c echo.Context) error {
	users, err := s.services.Users.ListUsers(c.Request().Context(), identityFrom(c), c.QueryParam("role"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (s *HTTPServer) handleListTours(c echo.Context) error {
	tours, err := s.services.Tours.ListTours(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tours)
}

func (s *HTTPServer) handleGetTour(c echo.Context) error {
	tour, err := s.services.Tours.GetTour(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tour)
}
