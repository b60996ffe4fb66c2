package pipedef

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Validate performs schema and cross-reference validation on a decoded
// Document: go-playground/validator struct-tag checks, followed by the
// cross-reference checks that tags cannot express (a producer tag is unique
// within its block, and every `takes` tag matches some `returns` tag
// anywhere in the document, regardless of serial).
func Validate(doc *Document) error {
	if doc == nil {
		return streamyerrors.NewValidationError("document", "document is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(doc); err != nil {
		return convertValidationError(err)
	}

	producerTags := make(map[string]struct{})
	for bi, block := range doc.Blocks {
		if err := v.Struct(block); err != nil {
			return convertValidationError(err)
		}

		seen := make(map[string]struct{}, len(block.Scripts))
		for si, script := range block.Scripts {
			if err := v.Struct(script); err != nil {
				return convertValidationError(err)
			}
			if _, dup := seen[script.ProducerTag]; dup {
				return streamyerrors.NewValidationError(
					fieldForScript(bi, si, "returns"),
					fmt.Sprintf("duplicate producer tag %q within block %q", script.ProducerTag, block.Name),
					nil)
			}
			seen[script.ProducerTag] = struct{}{}
			producerTags[script.ProducerTag] = struct{}{}
		}
	}

	for bi, block := range doc.Blocks {
		for si, script := range block.Scripts {
			if !script.HasTakes {
				continue
			}
			if _, ok := producerTags[script.TakesTag]; !ok {
				return streamyerrors.NewValidationError(
					fieldForScript(bi, si, "takes"),
					fmt.Sprintf("takes tag %q matches no returns tag anywhere in the pipeline", script.TakesTag),
					nil)
			}
		}
	}

	return nil
}

func fieldForScript(blockIdx, scriptIdx int, suffix string) string {
	return fmt.Sprintf("blocks[%d].scripts[%d].%s", blockIdx, scriptIdx, suffix)
}

func convertValidationError(err error) error {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
		}
		return streamyerrors.NewValidationError("", strings.Join(msgs, "; "), err)
	}

	return streamyerrors.NewValidationError("", err.Error(), err)
}
