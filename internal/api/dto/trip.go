package dto

type TripRowRequest struct {
	Day      string `json:"day"`
	Origin   string `json:"origin"`
	Waypoint string `json:"waypoint"`
}

type TripRowResponse struct {
	Day      string `json:"day"`
	Origin   string `json:"origin"`
	Waypoint string `json:"waypoint"`
}

type ListTripsResponse struct {
	Trips []TripRowResponse `json:"trips"`
}
