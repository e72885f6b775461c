package reconcile

// UserModel mirrors the externally supplied "SOL" JSON user model (spec
// §4.8, grounded in the source's sol/schema.rs): a network of ballasts and
// sensors, each carrying the external 4-byte hex node address.
type UserModel struct {
	Network *Network `json:"network"`
}

// Network lists every addressable entity the external model knows about.
type Network struct {
	Ballasts []Ballast `json:"ballasts"`
	Sensors  []Sensor  `json:"sensors"`
}

// Ballast is a lighting-control node entry.
type Ballast struct {
	Address string `json:"address"`
	TypeID  string `json:"type"`
	Name    string `json:"name"`
}

// Sensor is a sensing node entry. PartOf, when set, names the ballast this
// sensor is physically bundled with: such sensors have no address of their
// own in the node catalogue and are skipped (spec source: sol/loader.rs).
type Sensor struct {
	Address string  `json:"address"`
	TypeID  string  `json:"type_id"`
	Name    string  `json:"name"`
	PartOf  *string `json:"part_of"`
}
