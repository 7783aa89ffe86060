package cache

import "fmt"

// Cache key scheme. Every read operation has exactly one key builder here and
// every mutation path derives its invalidation set from RequestWriteKeys
// instead of assembling keys by hand.

func CommissionRequestsKey(commissionID string) string {
	return fmt.Sprintf("commission:req-list:%s", commissionID)
}

func ArtistCommissionsKey(artistID string) string {
	return fmt.Sprintf("artist:commissions:%s", artistID)
}

func UserRequestsKey(userID string) string {
	return fmt.Sprintf("user:req-list:%s", userID)
}

func RequestByOrderKey(orderID string) string {
	return fmt.Sprintf("request:order:%s", orderID)
}

func UserRequestedKey(userID, formID string) string {
	return fmt.Sprintf("user:requested:%s:%s", userID, formID)
}

// RequestWriteKeys is the declarative invalidation set for any write that
// touches a request: the commission's request list, the artist's commission
// list (counters and availability live there), the requester's request list,
// the by-order-id lookup and the has-requested flag.
func RequestWriteKeys(commissionID, artistID, userID, orderID, formID string) []string {
	return []string{
		CommissionRequestsKey(commissionID),
		ArtistCommissionsKey(artistID),
		UserRequestsKey(userID),
		RequestByOrderKey(orderID),
		UserRequestedKey(userID, formID),
	}
}
