package firmware

import (
	"errors"

	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
)

// Container verification errors (spec §4.2, §6), all wrapping the shared
// VerifyError taxonomy kind (spec §7).
var (
	ErrHeaderMagicNotPresent = errors.New("firmware: header magic not present")
	ErrHeaderCRCInvalid      = errors.New("firmware: header CRC invalid")
	ErrPayloadSizeInvalid    = errors.New("firmware: payload size invalid")
	ErrPayloadCRCInvalid     = errors.New("firmware: payload CRC invalid")
)

func verifyErr(sentinel error) error {
	return errors.Join(sentinel, ptneterr.ErrVerify)
}
