package ports

import "debstage/internal/types"

type SelectionWriterPort interface {
	WriteSelection(selection types.Selection) error
}
