package catalog

import "image/color"

func builtinTitles() []Title {
	return []Title{
		{
			Key:  "mjolner",
			Name: "Jönssonligan: Jakten på Mjölner",
			MovieStems: []string{
				"anslagstavla", "block", "dorislapp", "glidflygare", "heden",
				"kassaskap", "monalisa", "paris", "setup", "souvenir",
				"tavla", "tidningsbutik", "wtavla", "berlin", "container",
				"drottningtavla", "gotland", "huvudmeny", "london", "nrspel",
				"rom", "sheild", "stockholm", "telefonbok", "wsafe",
			},
			MovieDirs: []string{"data"},
			KeyColor:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
			SkipFiles: []string{
				"berlin--Animationer__harry0000-166.bmp",
				"berlin--Animationer__ingo0000-80.bmp",
				"berlin--Animationer__ingo0041-121.bmp",
				"berlin--Animationer__ingo0042-122.bmp",
				"berlin--Animationer__sickan0000-37.bmp",
				"berlin--Animationer__sickan0001-38.bmp",
				"berlin--Animationer__sickan0042.bmp",
				"berlin--Animationer__vanheden0000-123.bmp",
				"berlin--Animationer__vanheden0042-165.bmp",
			},
			Aliases: []Alias{
				{Movie: "berlin", Area: "Animationer", MemberPrefix: "vanheden700", As: "vanheden707"},
			},
		},
		{
			Key:        "djupet",
			Name:       "Jönssonligan: Går på djupet",
			MovieStems: []string{"avi", "game", "mainmenu", "qt"},
			MovieDirs:  []string{"data"},
			Renames:    []DirRename{{From: "xtras", To: "Xtras"}},
			KeyColor:   color.RGBA{R: 255, G: 0, B: 255, A: 255},
			SkipFiles:  []string{"Mainmenu--Internal__m_birdanim2_12-473.bmp"},
		},
		{
			Key:  "mullebil",
			Name: "Mulle Meck bygger bilar",
			MovieStems: []string{
				"02", "03", "04", "05", "06", "08", "10", "12", "13", "18",
				"82", "83", "84", "85", "86", "87", "88", "89", "90", "91",
				"92", "93", "94", "lbstart", "unload",
			},
			MovieDirs:      []string{"movies", "data"},
			Renames:        []DirRename{{From: "xtras", To: "Xtras"}},
			KeyColor:       color.RGBA{A: 255},
			SkipFiles:      []string{"02--00__Dummy-2.bmp"},
			DismissDialogs: true,
		},
	}
}
