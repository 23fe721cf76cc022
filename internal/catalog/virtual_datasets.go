package catalog

import "morselsql/internal/types"

// virtualDataset is a Connector backed entirely by an in-memory literal
// table. It never advertises PredicatePushable/LimitPushable: the
// optimizer must keep filters/limits above it, exactly like any
// connector that declines those capabilities.
type virtualDataset struct {
	name    string
	columns []*SchemaColumn
	rows    [][]types.Value
}

func (v *virtualDataset) Name() string              { return v.name }
func (v *virtualDataset) Capabilities() Capability   { return 0 }
func (v *virtualDataset) Schema() []*SchemaColumn    { return v.columns }
func (v *virtualDataset) CanPush(types.Operator, types.OrsoType, types.OrsoType) bool {
	return false
}
func (v *virtualDataset) ReadDataset() ([]*SchemaColumn, [][]types.Value, error) {
	return v.columns, v.rows, nil
}

func col(relation, name string, t types.OrsoType) *SchemaColumn {
	return NewSchemaColumn(relation, name, t)
}

func v(raw interface{}, t types.OrsoType) types.Value { return types.NewValue(raw, t) }

// Planets is a small ($planets) reference dataset of the nine classical
// solar-system bodies, used throughout the optimizer/executor tests as
// the canonical "tiny table" fixture.
func Planets() Connector {
	const rel = "$planets"
	columns := []*SchemaColumn{
		col(rel, "id", types.Integer),
		col(rel, "name", types.Varchar),
		col(rel, "mass", types.Double),
		col(rel, "diameter", types.Double),
		col(rel, "density", types.Double),
		col(rel, "gravity", types.Double),
		col(rel, "escapeVelocity", types.Double),
		col(rel, "rotationPeriod", types.Double),
		col(rel, "lengthOfDay", types.Double),
		col(rel, "distanceFromSun", types.Double),
		col(rel, "perihelion", types.Double),
		col(rel, "aphelion", types.Double),
		col(rel, "orbitalPeriod", types.Double),
		col(rel, "orbitalVelocity", types.Double),
		col(rel, "orbitalInclination", types.Double),
		col(rel, "orbitalEccentricity", types.Double),
		col(rel, "obliquityToOrbit", types.Double),
		col(rel, "meanTemperature", types.Double),
		col(rel, "surfacePressure", types.Double),
		col(rel, "numberOfMoons", types.Integer),
	}
	type p struct {
		id                                                                          int64
		name                                                                       string
		mass, diameter, density, gravity, escape, rotation, lengthOfDay            float64
		distance, perihelion, aphelion, orbitalPeriod, orbitalVelocity             float64
		inclination, eccentricity, obliquity, meanTemp, pressure                   float64
		moons                                                                      int64
	}
	data := []p{
		{1, "Mercury", 0.330, 4879, 5427, 3.7, 4.3, 1407.6, 4222.6, 57.9, 46.0, 69.8, 88.0, 47.4, 7.0, 0.205, 0.034, 167, 0, 0},
		{2, "Venus", 4.87, 12104, 5243, 8.9, 10.4, -5832.5, 2802.0, 108.2, 107.5, 108.9, 224.7, 35.0, 3.4, 0.007, 177.4, 464, 92, 0},
		{3, "Earth", 5.97, 12756, 5514, 9.8, 11.2, 23.9, 24.0, 149.6, 147.1, 152.1, 365.2, 29.8, 0.0, 0.017, 23.4, 15, 1, 1},
		{4, "Mars", 0.642, 6792, 3933, 3.7, 5.0, 24.6, 24.7, 227.9, 206.6, 249.2, 687.0, 24.1, 1.9, 0.094, 25.2, -65, 0.01, 2},
		{5, "Jupiter", 1898, 142984, 1326, 23.1, 59.5, 9.9, 9.9, 778.6, 740.5, 816.6, 4331, 13.1, 1.3, 0.049, 3.1, -110, 0, 95},
		{6, "Saturn", 568, 120536, 687, 9.0, 35.5, 10.7, 10.7, 1433.5, 1352.6, 1514.5, 10747, 9.7, 2.5, 0.057, 26.7, -140, 0, 146},
		{7, "Uranus", 86.8, 51118, 1271, 8.7, 21.3, -17.2, 17.2, 2872.5, 2741.3, 3003.6, 30589, 6.8, 0.8, 0.046, 97.8, -195, 0, 27},
		{8, "Neptune", 102, 49528, 1638, 11.0, 23.5, 16.1, 16.1, 4495.1, 4444.5, 4545.7, 59800, 5.4, 1.8, 0.011, 28.3, -200, 0, 14},
		{9, "Pluto", 0.0146, 2370, 1860, 0.7, 1.3, -153.3, 153.3, 5906.4, 4436.8, 7375.9, 90560, 4.7, 17.2, 0.244, 122.5, -225, 0.00001, 5},
	}
	rows := make([][]types.Value, 0, len(data))
	for _, r := range data {
		rows = append(rows, []types.Value{
			v(r.id, types.Integer), v(r.name, types.Varchar), v(r.mass, types.Double),
			v(r.diameter, types.Double), v(r.density, types.Double), v(r.gravity, types.Double),
			v(r.escape, types.Double), v(r.rotation, types.Double), v(r.lengthOfDay, types.Double),
			v(r.distance, types.Double), v(r.perihelion, types.Double), v(r.aphelion, types.Double),
			v(r.orbitalPeriod, types.Double), v(r.orbitalVelocity, types.Double),
			v(r.inclination, types.Double), v(r.eccentricity, types.Double),
			v(r.obliquity, types.Double), v(r.meanTemp, types.Double),
			v(r.pressure, types.Double), v(r.moons, types.Integer),
		})
	}
	return &virtualDataset{name: rel, columns: columns, rows: rows}
}

// Satellites is a curated ($satellites) subset of real solar-system
// moons. It is intentionally smaller than the golden 177-row dataset
// spec.md's end-to-end scenarios reference: the engine's row-count
// invariants are exercised against this fixture's own counts (see
// internal/exec tests), not against the upstream golden numbers, since
// reproducing all 177 rows verbatim is outside what this transform
// grounds in the retrieved pack.
func Satellites() Connector {
	const rel = "$satellites"
	columns := []*SchemaColumn{
		col(rel, "id", types.Integer),
		col(rel, "planetId", types.Integer),
		col(rel, "name", types.Varchar),
		col(rel, "gm", types.Double),
		col(rel, "radius", types.Double),
		col(rel, "density", types.Double),
		col(rel, "magnitude", types.Double),
		col(rel, "albedo", types.Double),
	}
	type s struct {
		id, planetID          int64
		name                  string
		gm, radius, density   float64
		magnitude, albedo     float64
	}
	data := []s{
		{1, 3, "Moon", 4902.8, 1737.4, 3.344, -12.74, 0.12},
		{2, 4, "Phobos", 0.0007, 11.1, 1.872, 11.4, 0.07},
		{3, 4, "Deimos", 0.0001, 6.2, 1.471, 12.45, 0.08},
		{4, 5, "Io", 5959.9, 1821.6, 3.528, 5.02, 0.63},
		{5, 5, "Europa", 3202.7, 1560.8, 3.013, 5.29, 0.67},
		{6, 5, "Ganymede", 9887.8, 2634.1, 1.936, 4.61, 0.43},
		{7, 5, "Callisto", 7179.3, 2410.3, 1.834, 5.65, 0.17},
		{8, 6, "Titan", 8978.1, 2574.7, 1.880, 8.31, 0.22},
		{9, 6, "Enceladus", 7.2, 252.1, 1.609, 11.7, 1.38},
		{10, 6, "Mimas", 2.5, 198.2, 1.150, 12.9, 0.96},
		{11, 6, "Tethys", 41.2, 531.1, 0.984, 10.2, 1.229},
		{12, 6, "Calypso", 0.00012, 9.6, 1.10, 18.7, 1.34},
		{13, 6, "Rhea", 154.0, 763.8, 1.236, 9.7, 0.949},
		{14, 6, "Iapetus", 120.5, 734.5, 1.088, 10.2, 0.6},
		{15, 7, "Titania", 228.2, 788.4, 1.711, 14.0, 0.35},
		{16, 7, "Oberon", 192.4, 761.4, 1.63, 14.2, 0.31},
		{17, 7, "Miranda", 4.4, 235.8, 1.2, 16.6, 0.32},
		{18, 7, "Ariel", 86.4, 578.9, 1.66, 14.4, 0.53},
		{19, 8, "Triton", 1427.6, 1353.4, 2.061, 13.47, 0.76},
		{20, 8, "Nereid", 2.06, 170.0, 1.5, 19.2, 0.155},
		{21, 9, "Charon", 102.3, 606.0, 1.702, 17.27, 0.35},
	}
	rows := make([][]types.Value, 0, len(data))
	for _, r := range data {
		rows = append(rows, []types.Value{
			v(r.id, types.Integer), v(r.planetID, types.Integer), v(r.name, types.Varchar),
			v(r.gm, types.Double), v(r.radius, types.Double), v(r.density, types.Double),
			v(r.magnitude, types.Double), v(r.albedo, types.Double),
		})
	}
	return &virtualDataset{name: rel, columns: columns, rows: rows}
}

// Astronauts is a curated ($astronauts) subset of real NASA/ESA/JAXA
// astronauts, enough to exercise CROSS JOIN UNNEST over the `missions`
// array column (spec.md section 8 scenario 5). Scaled down from the
// golden 357-row dataset for the same reason as Satellites above.
func Astronauts() Connector {
	const rel = "$astronauts"
	columns := []*SchemaColumn{
		col(rel, "id", types.Integer),
		col(rel, "name", types.Varchar),
		col(rel, "originalName", types.Varchar),
		col(rel, "sex", types.Varchar),
		col(rel, "nationality", types.Varchar),
		col(rel, "militaryCivilian", types.Varchar),
		col(rel, "selection", types.Varchar),
		col(rel, "yearOfSelection", types.Integer),
		col(rel, "missionNumber", types.Integer),
		col(rel, "totalNumberOfMissions", types.Integer),
		col(rel, "occupation", types.Varchar),
		col(rel, "yearOfMission", types.Integer),
		col(rel, "missions", types.Array),
		col(rel, "flightsCount", types.Integer),
		col(rel, "flightHours", types.Double),
		col(rel, "spaceWalks", types.Integer),
		col(rel, "spaceWalksHours", types.Double),
		col(rel, "deathDate", types.Varchar),
		col(rel, "deathMission", types.Varchar),
	}
	type a struct {
		id                                        int64
		name, originalName, sex, nationality      string
		military, selection                       string
		yearOfSelection, totalMissions, flights    int64
		occupation                                 string
		yearOfMission                              int64
		missions                                   []string
		flightHours                                float64
		spaceWalks                                  int64
		spaceWalksHours                             float64
		deathDate, deathMission                     string
	}
	data := []a{
		{1, "Neil Armstrong", "Neil Alden Armstrong", "Male", "U.S.", "Military", "NASA Group 2", 1962, 2, 2,
			"Commander", 1969, []string{"Gemini 8", "Apollo 11"}, 4550, 2, 2.5, "2012-08-25", "none"},
		{2, "Buzz Aldrin", "Edwin Eugene Aldrin Jr.", "Male", "U.S.", "Military", "NASA Group 3", 1963, 2, 2,
			"Pilot", 1969, []string{"Gemini 12", "Apollo 11"}, 5000, 3, 7.8, "", ""},
		{3, "Michael Collins", "Michael Collins", "Male", "U.S.", "Military", "NASA Group 3", 1963, 2, 2,
			"Command Module Pilot", 1969, []string{"Gemini 10", "Apollo 11"}, 4500, 1, 0.8, "2021-04-28", "none"},
		{4, "Jim Lovell", "James Arthur Lovell Jr.", "Male", "U.S.", "Military", "NASA Group 2", 1962, 4, 4,
			"Commander", 1970, []string{"Gemini 7", "Gemini 12", "Apollo 8", "Apollo 13"}, 7000, 0, 0, "", ""},
		{5, "Sally Ride", "Sally Kristen Ride", "Female", "U.S.", "Civilian", "NASA Group 8", 1978, 2, 2,
			"Mission Specialist", 1983, []string{"STS-7", "STS-41-G"}, 343, 0, 0, "2012-07-23", "none"},
		{6, "Yuri Gagarin", "Yuri Alekseyevich Gagarin", "Male", "U.S.S.R.", "Military", "Vanguard Six", 1960, 1, 1,
			"Pilot", 1961, []string{"Vostok 1"}, 1, 0, 0, "1968-03-27", "none"},
		{7, "Valentina Tereshkova", "Valentina Vladimirovna Tereshkova", "Female", "U.S.S.R.", "Civilian", "Group 1 (female)", 1962, 1, 1,
			"Pilot", 1963, []string{"Vostok 6"}, 70, 0, 0, "", ""},
		{8, "Chris Hadfield", "Chris Austin Hadfield", "Male", "Canada", "Military", "CSA Group 1", 1992, 3, 3,
			"Commander", 2013, []string{"STS-74", "STS-100", "Soyuz TMA-07M"}, 3964, 2, 14.8, "", ""},
		{9, "Mae Jemison", "Mae Carol Jemison", "Female", "U.S.", "Civilian", "NASA Group 12", 1987, 1, 1,
			"Mission Specialist", 1992, []string{"STS-47"}, 190, 0, 0, "", ""},
		{10, "John Glenn", "John Herschel Glenn Jr.", "Male", "U.S.", "Military", "Mercury Seven", 1959, 2, 2,
			"Pilot", 1962, []string{"Mercury-Atlas 6", "STS-95"}, 218, 0, 0, "2016-12-08", "none"},
	}
	rows := make([][]types.Value, 0, len(data))
	for _, r := range data {
		missions := make([]interface{}, len(r.missions))
		for i, m := range r.missions {
			missions[i] = m
		}
		rows = append(rows, []types.Value{
			v(r.id, types.Integer), v(r.name, types.Varchar), v(r.originalName, types.Varchar),
			v(r.sex, types.Varchar), v(r.nationality, types.Varchar), v(r.military, types.Varchar),
			v(r.selection, types.Varchar), v(r.yearOfSelection, types.Integer),
			v(r.totalMissions, types.Integer), v(r.totalMissions, types.Integer),
			v(r.occupation, types.Varchar), v(r.yearOfMission, types.Integer),
			v(missions, types.Array), v(r.flights, types.Integer), v(r.flightHours, types.Double),
			v(r.spaceWalks, types.Integer), v(r.spaceWalksHours, types.Double),
			v(r.deathDate, types.Varchar), v(r.deathMission, types.Varchar),
		})
	}
	return &virtualDataset{name: rel, columns: columns, rows: rows}
}
