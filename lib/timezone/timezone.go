package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Karachi")
	if err != nil {
		panic(err)
	}
}

// force the portal's timezone regardless of where the monitor is
// deployed, otherwise cookie expiry checks and observation timestamps
// drift when the host ends up in another region
func Now() time.Time {
	return time.Now().In(Location)
}
