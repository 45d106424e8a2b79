package column

import (
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/typetag"
)

func errTypeMismatch(want, got typetag.Tag) error {
	return jointypes.ErrTypeMismatch.New(want, got)
}
