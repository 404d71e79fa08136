package bridge

// CLIP v2 resource types used by the streaming core. huego only covers the
// V1 API, so the entertainment resources are modelled here.

// ResourceRef is a typed reference to another CLIP resource.
type ResourceRef struct {
	RID   string `json:"rid"`
	RType string `json:"rtype"`
}

// Position is the 3D layout hint attached to an entertainment channel.
// Each coordinate lies in [-1,1].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// EntertainmentConfiguration is a zone: a grouping of fixtures and their
// channel assignments, referenced by a single identifier.
type EntertainmentConfiguration struct {
	ID       string `json:"id"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	ConfigurationType string                 `json:"configuration_type"`
	Status            string                 `json:"status"`
	Channels          []EntertainmentChannel `json:"channels"`
	LightServices     []ResourceRef          `json:"light_services"`
}

// EntertainmentChannel is one protocol-level addressable unit in a zone.
type EntertainmentChannel struct {
	ChannelID uint8    `json:"channel_id"`
	Position  Position `json:"position"`
	Members   []struct {
		Service ResourceRef `json:"service"`
		Index   int         `json:"index"`
	} `json:"members"`
}

// EntertainmentService links a channel member back to its owning device.
type EntertainmentService struct {
	ID    string      `json:"id"`
	Owner ResourceRef `json:"owner"`
}

// Light is the subset of the CLIP light resource the engine needs.
type Light struct {
	ID       string      `json:"id"`
	IDV1     string      `json:"id_v1,omitempty"`
	Owner    ResourceRef `json:"owner"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Gradient *struct {
		PointsCapable int `json:"points_capable"`
	} `json:"gradient,omitempty"`
}
