package registry

import "github.com/iliyamo/cartelera/internal/model"

// DefaultSeeds is the built-in venue list.
func DefaultSeeds() []Seed {
	return []Seed{
		{
			Venue: model.Venue{
				ID:       "aragonia",
				Name:     "Aragonia",
				Address:  "Avenida de Juan Pablo II, 43, 50009 Zaragoza",
				Location: "Zaragoza",
				Website:  "https://www.cinespalafox.com/cartelera-cines-aragonia.html",
				Source:   "https://www.cinespalafox.com/cartelera-cines-aragonia.html",
				Family:   model.FamilyListing,
			},
			Aliases: []string{"https://www.reservaentradas.com/cine/zaragoza/cinesaragonia"},
		},
		{
			Venue: model.Venue{
				ID:       "palafox",
				Name:     "Cines Palafox",
				Address:  "Paseo de la Independencia, 12, 50004 Zaragoza",
				Location: "Zaragoza",
				Website:  "https://www.cinespalafox.com/cartelera-cines-palafox.html",
				Source:   "https://www.cinespalafox.com/cartelera-cines-palafox.html",
				Family:   model.FamilyListing,
			},
			Aliases: []string{"https://www.reservaentradas.com/cine/zaragoza/cinespalafox/"},
		},
		{
			Venue: model.Venue{
				ID:       "cervantes",
				Name:     "Sala Cervantes",
				Address:  "Calle Marqués de Casa Jiménez, 2, 50004 Zaragoza",
				Location: "Zaragoza",
				Website:  "https://www.cinespalafox.com/cartelera-cine-cervantes.html",
				Source:   "https://www.cinespalafox.com/cartelera-cine-cervantes.html",
				Family:   model.FamilyListing,
			},
			Aliases: []string{"https://www.reservaentradas.com/cine/zaragoza/cervantes/"},
		},
		{
			Venue: model.Venue{
				ID:       "grancasa",
				Name:     "Cinesa Grancasa",
				Address:  "Calle de María Zambrano, 35, 50018 Zaragoza",
				Location: "Zaragoza",
				Website:  "https://www.cinesa.es/cines/grancasa",
				Source:   "https://www.cinesa.es/Cines/Horarios/1150/0",
				Family:   model.FamilyJSONFeed,
			},
		},
		{
			Venue: model.Venue{
				ID:       "venecia",
				Name:     "Cinesa Puerto Venecia",
				Address:  "Travesía Jardines Reales, 7, 50021 Zaragoza",
				Location: "Zaragoza",
				Website:  "https://www.cinesa.es/cines/puerto-venecia",
				Source:   "https://www.cinesa.es/Cines/Horarios/1170/0",
				Family:   model.FamilyJSONFeed,
			},
		},
		cardGrid("victoria", "Multicines Victoria", "Calle Santa Barbara, 27, 22400 Monzón", "Huesca",
			"https://circusa.com/monzon/", "https://www.reservaentradas.com/cine/huesca/multicinesvictoria/"),
		cardGrid("maravillas", "Cine Maravillas", "Calle San Miguel, 5, 44001 Teruel", "Teruel",
			"https://cinemaravillas.com/", "https://www.reservaentradas.com/cine/teruel/cinemaravillas/"),
		cardGrid("lys", "Cines Lys", "Paseo de Ruzafa, 3, 46002 Valencia", "Valencia",
			"https://www.cineslys.com/", "https://www.reservaentradas.com/cine/valencia/cineslys/"),
		cardGrid("abcpark", "Cines ABC Park", "Calle Roger de Lauria, 21, 46002 Valencia", "Valencia",
			"https://www.cinesabc.com/", "https://www.reservaentradas.com/cine/valencia/abcpark/"),
		cardGrid("abcgranturia", "Cines ABC Gran Turia", "Plaza de Europa, 46950 Xirivella", "Valencia",
			"https://www.cinesabc.com/", "https://www.reservaentradas.com/cine/valencia/abcgranturia/"),
		cardGrid("abcelsaler", "Cines ABC Saler", "Avenida Profesor López Piñero, 16, 46013 Valencia", "Valencia",
			"https://www.cinesabc.com/", "https://www.reservaentradas.com/cine/valencia/abcelsaler/"),
		cardGrid("abcgandia", "Cines ABC Gandia", "Avenida La Vital, 10, 46701 Gandia", "Valencia",
			"https://www.cinesabc.com/", "https://www.reservaentradas.com/cine/valencia/abcgandia/"),
	}
}

func cardGrid(id, name, address, location, website, source string) Seed {
	return Seed{Venue: model.Venue{
		ID:       id,
		Name:     name,
		Address:  address,
		Location: location,
		Website:  website,
		Source:   source,
		Family:   model.FamilyCardGrid,
	}}
}
