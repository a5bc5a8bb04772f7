package filerequest

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rotisserie/eris"

	"github.com/sells-group/boxflow/pkg/box"
)

// Overrides are the optional fields applied when copying or updating a file
// request. Nil fields keep the source value.
type Overrides struct {
	Title                 *string    `json:"title,omitempty"`
	Description           *string    `json:"description,omitempty"`
	Status                *string    `json:"status,omitempty"`
	IsEmailRequired       *bool      `json:"is_email_required,omitempty"`
	IsDescriptionRequired *bool      `json:"is_description_required,omitempty"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
}

// Validate rejects statuses other than active/inactive and expiry times
// that are not after now.
func (o Overrides) Validate(now time.Time) error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.Title, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&o.Status, validation.NilOrNotEmpty, validation.In(box.FileRequestActive, box.FileRequestInactive)),
		validation.Field(&o.ExpiresAt, validation.By(func(value any) error {
			t, _ := value.(*time.Time)
			if t == nil || t.After(now) {
				return nil
			}
			return validation.NewError("validation_expiry_past", "must be in the future")
		})),
	)
	return eris.Wrap(err, "filerequest: invalid overrides")
}

// Empty reports whether no field is set.
func (o Overrides) Empty() bool {
	return o == Overrides{}
}

func (o Overrides) toUpdate() box.FileRequestUpdateRequest {
	return box.FileRequestUpdateRequest{
		Title:                 o.Title,
		Description:           o.Description,
		Status:                o.Status,
		IsEmailRequired:       o.IsEmailRequired,
		IsDescriptionRequired: o.IsDescriptionRequired,
		ExpiresAt:             o.ExpiresAt,
	}
}
