package versions

import (
	"fmt"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"lifeplan/internal/config"
	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/domain/services"
)

var documentKinds = []any{models.DocumentKindProfile, models.DocumentKindVision}

func validateCreateRequest(req *services.CreateDocumentRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Kind, validation.Required, validation.In(documentKinds...)),
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
		validation.Field(&req.VersionNotes, validation.Length(0, config.MaxVersionNotesLength)),
		validation.Field(&req.ParentID, validation.NilOrNotEmpty),
		validation.Field(&req.HouseholdID, validation.NilOrNotEmpty),
	)
	if err != nil {
		return err
	}
	if err := req.Fields.ValidateFor(req.Kind); err != nil {
		return err
	}
	return validateTextLengths(req.Fields)
}

func validateUpdateRequest(kind models.DocumentKind, req *services.UpdateDocumentRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
		validation.Field(&req.VersionNotes, validation.Length(0, config.MaxVersionNotesLength)),
		validation.Field(&req.ExpectedRevision, validation.Min(1)),
	)
	if err != nil {
		return err
	}
	if err := req.Fields.ValidateFor(kind); err != nil {
		return err
	}
	for key, v := range req.Fields {
		if v != nil {
			if err := validateTextLength(key, *v); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateMergeRequest(req *services.MergeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.VersionA, validation.Required),
		validation.Field(&req.VersionB, validation.Required),
		validation.Field(&req.HouseholdID, validation.Required),
		validation.Field(&req.Title, validation.Length(0, config.MaxTitleLength)),
	)
}

func validateConvertRequest(req *services.ConvertToHouseholdRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.SourceID, validation.Required),
		validation.Field(&req.HouseholdID, validation.Required),
	)
}

func validateAppendRequest(kind models.DocumentKind, req *services.AppendRecordingRequest) error {
	rec := &req.Recording
	err := validation.ValidateStruct(rec,
		validation.Field(&rec.Type, validation.Required, validation.In(models.MediaTypeAudio, models.MediaTypeVideo)),
		validation.Field(&rec.URL, is.RequestURL),
		validation.Field(&rec.Transcript, validation.Length(0, config.MaxTranscriptLength)),
		validation.Field(&rec.Category, validation.Length(0, 64)),
	)
	if err != nil {
		return err
	}
	if !req.Purpose.Valid() {
		return fmt.Errorf("unknown recording purpose %q", req.Purpose)
	}

	if req.TargetField == "" {
		return nil
	}
	spec, ok := models.LookupField(req.TargetField)
	if !ok || !spec.AllowedIn(kind) {
		return fmt.Errorf("field %q is not valid on a %s", req.TargetField, kind)
	}
	if spec.Kind != models.FieldKindText {
		return fmt.Errorf("field %q is not a text field", req.TargetField)
	}
	return validateTextLength(req.TargetField, models.TextValue(req.TargetValue))
}

func validateTextLengths(fields models.Fields) error {
	for key, v := range fields {
		if err := validateTextLength(key, v); err != nil {
			return err
		}
	}
	return nil
}

func validateTextLength(key models.FieldKey, v models.FieldValue) error {
	if v.Kind() == models.FieldKindText && utf8.RuneCountInString(v.Text()) > config.MaxTextFieldLength {
		return fmt.Errorf("field %q exceeds %d characters", key, config.MaxTextFieldLength)
	}
	return nil
}

// invalid wraps a validation failure with ErrValidation
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}
