package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"stockpos/internal/apierror"
	"stockpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their json name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			if name := strings.Split(f.Tag.Get(tag), ",")[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

const msgStoreUnavailable = "An error occurred while processing your request."

// bindAndValidate binds the body (JSON or form, by Content-Type) and runs
// go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid request body: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindJSON is bindAndValidate for JSON-only endpoints.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid query: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// idParam parses the :id path parameter, writing a 400 on failure.
func idParam(c *gin.Context, field string) (uint, bool) {
	id, err := service.ParseID(c.Param("id"), field)
	if err != nil {
		writeError(c, err)
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	writeErrorWith(c, err, msgStoreUnavailable)
}

// writeErrorWith is writeError with a custom message for ErrStoreUnavailable.
func writeErrorWith(c *gin.Context, err error, unavailableMsg string) {
	var stock *service.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, apierror.NewStock(stock.Error(), stock.Available))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, apierror.New(service.UserMessage(err)))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierror.New("Invalid email or password."))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New(service.UserMessage(err)))
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, apierror.New(service.UserMessage(err)))
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, apierror.New(unavailableMsg))
	default:
		_ = c.Error(err)
	}
}
