package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/clinicore/phi-gate/internal/model"
)

var consentTypes = map[model.ConsentType]struct{}{
	model.ConsentHIPAAPrivacy:       {},
	model.ConsentTreatment:          {},
	model.ConsentDataSharing:        {},
	model.ConsentResearch:           {},
	model.ConsentMarketing:          {},
	model.ConsentTelehealth:         {},
	model.ConsentEmergencyContact:   {},
	model.ConsentBillingDisclosure:  {},
	model.ConsentThirdPartyAccess:   {},
	model.ConsentMentalHealthAccess: {},
}

var dataCategories = map[model.DataCategory]struct{}{
	model.CategoryDemographics:   {},
	model.CategoryMedicalHistory: {},
	model.CategoryDiagnosis:      {},
	model.CategoryPrescriptions:  {},
	model.CategoryLabResults:     {},
	model.CategoryAppointments:   {},
	model.CategoryBillingInfo:    {},
	model.CategoryInsuranceInfo:  {},
	model.CategoryContactInfo:    {},
	model.CategoryMentalHealth:   {},
}

// RegisterValidators installs the domain value validators on gin's
// binding engine and makes field errors report json names. Call once
// at startup before routes are served.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	must(v.RegisterValidation("consenttype", func(fl validator.FieldLevel) bool {
		_, known := consentTypes[model.ConsentType(fl.Field().String())]
		return known
	}))
	must(v.RegisterValidation("datacategory", func(fl validator.FieldLevel) bool {
		_, known := dataCategories[model.DataCategory(fl.Field().String())]
		return known
	}))
	must(v.RegisterValidation("principalrole", func(fl validator.FieldLevel) bool {
		return model.ParseRole(fl.Field().String()) != model.RoleUnknown
	}))

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
