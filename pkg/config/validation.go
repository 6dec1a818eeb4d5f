package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus custom rules
// that cannot be expressed declaratively.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	userIDs := make(map[int64]bool)
	for i, u := range cfg.Users {
		if userIDs[u.ID] {
			return fmt.Errorf("users[%d]: duplicate user id %d", i, u.ID)
		}
		userIDs[u.ID] = true
	}

	groupIDs := make(map[int64]bool)
	for i, g := range cfg.Groups {
		if groupIDs[g.ID] {
			return fmt.Errorf("groups[%d]: duplicate group id %d", i, g.ID)
		}
		groupIDs[g.ID] = true

		for _, member := range g.Members {
			if len(userIDs) > 0 && !userIDs[member] {
				return fmt.Errorf("groups[%d]: member %d is not a configured user", i, member)
			}
		}
	}

	submissionIDs := make(map[int64]bool)
	for i, s := range cfg.Submissions {
		if submissionIDs[s.ID] {
			return fmt.Errorf("submissions[%d]: duplicate submission id %d", i, s.ID)
		}
		submissionIDs[s.ID] = true

		// A submission belongs to exactly one owner: a user or a group.
		if (s.UserID == 0) == (s.GroupID == 0) {
			return fmt.Errorf("submissions[%d]: exactly one of user_id or group_id must be set", i)
		}
		if s.UserID != 0 && len(userIDs) > 0 && !userIDs[s.UserID] {
			return fmt.Errorf("submissions[%d]: user %d is not a configured user", i, s.UserID)
		}
		if s.GroupID != 0 && len(groupIDs) > 0 && !groupIDs[s.GroupID] {
			return fmt.Errorf("submissions[%d]: group %d is not a configured group", i, s.GroupID)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
