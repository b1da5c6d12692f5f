package server

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/server/response"
)

var trans ut.Translator

func init() {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ = uni.GetTranslator("en")

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
			logrus.WithError(err).Warn("registering validation translations")
		}
	}
}

// bindError turns a binding failure into a readable 400.
func bindError(err error) *errors.Error {
	var msgs []string
	for _, e := range models.TranslateError(err, trans) {
		msgs = append(msgs, e.Error())
	}
	return errors.New(strings.Join(msgs, "; "), http.StatusBadRequest)
}

// decode binds a JSON body, trims its strings and validates the trimmed
// values, so a whitespace-only required field is rejected.
func decode(c *gin.Context, v interface{}) *errors.Error {
	if err := c.ShouldBindJSON(v); err != nil {
		return bindError(err)
	}
	return trimAndValidate(v)
}

// decodeForm is decode for multipart and urlencoded bodies.
func decodeForm(c *gin.Context, v interface{}) *errors.Error {
	if err := c.ShouldBindWith(v, binding.FormMultipart); err != nil {
		return bindError(err)
	}
	return trimAndValidate(v)
}

func trimAndValidate(v interface{}) *errors.Error {
	if err := models.TrimStrings(v); err != nil {
		return errors.New(err.Error(), http.StatusBadRequest)
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return bindError(err)
	}
	return nil
}

func GetUserFromContext(c *gin.Context) (*models.User, error) {
	if userI, exists := c.Get("user"); exists {
		if user, ok := userI.(*models.User); ok {
			return user, nil
		}
	}
	return nil, errors.New("user is not logged in", http.StatusUnauthorized)
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid "+name, http.StatusBadRequest)
	}
	return uint(id), nil
}

// respondError writes err with the status it carries.
func respondError(c *gin.Context, err error) {
	response.JSON(c, "", errors.StatusOf(err), nil, err)
}
