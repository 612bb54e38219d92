package handlers

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

var validate = validator.New()

// bind parses the JSON body into dst and runs its validate tags.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", fieldErrors(err))
	}
	return nil
}

func fieldErrors(err error) map[string]interface{} {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]interface{}{"error": err.Error()}
	}
	details := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		details[fe.Namespace()] = fe.Tag()
	}
	return details
}

// page converts page/page_size query params into limit and offset.
func page(c *fiber.Ctx) (limit, offset int) {
	number := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), 20)
	return size, (number - 1) * size
}

func parseList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOptional(val string) *string {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}
	return &val
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
