package stratum

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/gertjaap/stratum-go/logging"
)

// AddressAuthorizer only admits workers whose account part is a valid
// payout address on params. The password is ignored.
func AddressAuthorizer(params *chaincfg.Params) Authorizer {
	return func(a *Authorize) bool {
		addr, err := btcutil.DecodeAddress(a.Account(), params)
		if err != nil {
			logging.Debugf("Stratum: %q is not an address: %v", a.Account(), err)
			return false
		}
		return addr.IsForNet(params)
	}
}
