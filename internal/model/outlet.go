package model

// Outlet identifies the news outlet an editorial was published in.
type Outlet string

const (
	OutletLeMonde     Outlet = "Le Monde"
	OutletTheGuardian Outlet = "The Guardian"
	OutletLiberation  Outlet = "Libération"
)

// outletContext describes how each outlet produces its editorials. It is
// handed to the critique prompt so the model can judge authorship claims.
var outletContext = map[Outlet]string{
	OutletLeMonde: `Le Monde is a French daily newspaper.
It publishes a daily editorial that is signed 'Le Monde'.
Not signed because it represents the views of the entire newspaper, the editorial is typically written by one of the four editorial writers of the editorial team after a collective process of selecting and taking a stance on a current issue.`,
	OutletTheGuardian: `The Guardian is a British daily newspaper.
It publishes two daily editorial pieces titled 'The Guardian view on...', which are both unsigned.
Though the piece is written mainly by a single author, it is produced through a collaborative process involving other journalists, subject specialists, and the editor, ensuring that the final unsigned piece reflects a collective viewpoint rather than individual opinions.`,
	OutletLiberation: `Libération is a French daily newspaper.
It publishes a daily editorial that is signed by a member of the editorial board (may be the director).`,
}

// Outlets returns the known outlets in a stable order.
func Outlets() []Outlet {
	return []Outlet{OutletLeMonde, OutletTheGuardian, OutletLiberation}
}

// Known reports whether o is one of the outlets with editorial context.
func (o Outlet) Known() bool {
	_, ok := outletContext[o]
	return ok
}

// Context returns the editorial context for the outlet, or "" if unknown.
func (o Outlet) Context() string {
	return outletContext[o]
}

func (o Outlet) String() string {
	return string(o)
}
