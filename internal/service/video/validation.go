package video

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var VideoURLRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 2048),
}

var FormatIDRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 128),
}
