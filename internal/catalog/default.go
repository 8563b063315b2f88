package catalog

// Image identifiers as uploaded to the media bucket.
const (
	ImageIntoTheLight = "DSC00670.JPG"
	ImageSurface      = "DSC01709.JPEG"
	ImageAbyss        = "DSC09894 2.jpeg"
	ImageGraceInBlue  = "DSC0E5024.JPG"
	ImageCathedral    = "IMG_1823 2.JPG"
	ImageAscending    = "saasilmonica3.JPG"
)

// Default returns the portfolio shipped with the site.
func Default() *Catalog {
	c, err := New(defaultProducts(), defaultArticles())
	if err != nil {
		panic("catalog: invalid built-in data: " + err.Error())
	}
	return c
}

func defaultProducts() []Product {
	return []Product{
		{
			ID:              "p1",
			Name:            "Into The Light",
			Tagline:         "A descent into serenity.",
			Description:     "A solitary freediver silhouetted against cathedral-like rays of light piercing the deep blue abyss.",
			LongDescription: "Captured at 30 meters depth in a cenote in Tulum, Mexico, this image represents the meditative state achieved in freediving. The interplay of light and shadow creates a spiritual atmosphere, where the diver becomes one with the ocean. The dramatic light rays symbolize hope and transcendence in the depths.",
			Category:        LimitedEdition,
			Image:           ImageIntoTheLight,
			Gallery:         []string{ImageIntoTheLight},
			Features:        []string{"Tulum, Mexico", "30 meters depth", "Natural light only", "Single breath"},
		},
		{
			ID:              "p2",
			Name:            "Surface Dreams",
			Tagline:         "Where two worlds meet.",
			Description:     "Abstract patterns of light dancing on the ocean surface, captured from below in crystalline turquoise water.",
			LongDescription: "This abstract composition explores the boundary between air and water. Shot looking upward toward the surface in the Caribbean Sea, the refraction of sunlight creates ever-changing geometric patterns. The image invites contemplation on the liminal spaces between worlds, the tangible and the ethereal.",
			Category:        FineArt,
			Image:           ImageSurface,
			Gallery:         []string{ImageSurface},
			Features:        []string{"Caribbean Sea", "15 meters depth", "Looking toward surface", "Abstract light study"},
		},
		{
			ID:              "p3",
			Name:            "The Abyss Calls",
			Tagline:         "Solitude in the deep.",
			Description:     "A lone diver suspended in the vast emptiness, with bioluminescent plankton illuminating the ocean floor below.",
			LongDescription: "Taken during a night dive in the Pacific, this haunting image captures the overwhelming scale of the ocean. The diver appears tiny against the infinite expanse, while glowing plankton creates an otherworldly atmosphere below. This photograph speaks to our innate human curiosity to explore the unknown.",
			Category:        LimitedEdition,
			Image:           ImageAbyss,
			Gallery:         []string{ImageAbyss},
			Features:        []string{"Pacific Ocean", "Night dive", "Bioluminescent plankton", "35 meters depth"},
		},
		{
			ID:              "p4",
			Name:            "Grace in Blue",
			Tagline:         "The ocean's ballet.",
			Description:     "A freediver in perfect form, touching a nurse shark in a moment of interspecies connection and mutual respect.",
			LongDescription: "Photographed in the Bahamas, this image captures a rare moment of trust between human and shark. The diver's graceful posture and the shark's calm demeanor demonstrate the possibility of peaceful coexistence. The brilliant turquoise water provides a dreamlike backdrop to this intimate encounter.",
			Category:        Wildlife,
			Image:           ImageGraceInBlue,
			Gallery:         []string{ImageGraceInBlue},
			Features:        []string{"Bahamas", "Nurse shark encounter", "20 meters depth", "Wildlife interaction"},
		},
		{
			ID:              "p5",
			Name:            "Cathedral of Water",
			Tagline:         "Ancient caves, eternal light.",
			Description:     "Dramatic god rays illuminate a freediver exploring underwater rock formations in crystal-clear water.",
			LongDescription: "Captured in a limestone cave system, this photograph showcases the raw power and beauty of natural light underwater. The sun beams create a spiritual atmosphere, reminiscent of light filtering through stained glass in an ancient cathedral. The diver explores with reverence, small against the geological majesty.",
			Category:        LimitedEdition,
			Image:           ImageCathedral,
			Gallery:         []string{ImageCathedral},
			Features:        []string{"Limestone cave system", "God rays", "25 meters depth", "Cave diving"},
		},
		{
			ID:              "p6",
			Name:            "Ascending",
			Tagline:         "The journey to the surface.",
			Description:     "Three freedivers in synchronized ascent, backlit by the sun's rays penetrating the deep blue water.",
			LongDescription: "This powerful image captures the final moments of a deep dive. The three divers move as one toward the light above, their forms creating a rhythmic vertical composition. Shot at 40 meters in the Mediterranean, the image speaks to themes of teamwork, trust, and the universal human desire to reach for the light.",
			Category:        LimitedEdition,
			Image:           ImageAscending,
			Gallery:         []string{ImageAscending},
			Features:        []string{"Cenote in Yucatan, México"},
		},
	}
}

func paragraph(s string) Block {
	return Block{Kind: "paragraph", Lines: []string{s}}
}

func quote(s string) Block {
	return Block{Kind: "quote", Lines: []string{s}}
}

func verse(lines ...string) Block {
	return Block{Kind: "verse", Lines: lines}
}

func defaultArticles() []Article {
	return []Article{
		{
			ID:      1,
			Title:   "One Breath, One World",
			Date:    "November 15, 2025",
			Excerpt: "The meditative practice of freediving and how it transformed my relationship with the ocean.",
			Image:   ImageIntoTheLight,
			Body: []Block{
				paragraph("The first time I held my breath and descended past 20 meters, something fundamental shifted. The ocean stopped being a place I visited and became a place where I belonged."),
				paragraph("Freediving is not about conquering depth or breaking records. It's about surrender: releasing control and trusting your body's ancient relationship with water. With each dive, the mind quiets. The urge to breathe becomes a distant whisper. Time stretches and bends."),
				quote("In the deep blue, we remember we are still wild creatures, still capable of wonder."),
				paragraph("Photography came later. The camera became a tool to share what words cannot capture: the weight of silence underwater, the cathedral of light in a cenote, the fleeting moment when a sea creature meets your gaze with curiosity rather than fear."),
			},
		},
		{
			ID:      2,
			Title:   "Light and Depth",
			Date:    "October 22, 2025",
			Excerpt: "Technical notes on capturing the interplay of natural light in underwater environments.",
			Image:   ImageCathedral,
			Body: []Block{
				paragraph("Underwater photography is a constant negotiation with light. Every meter of descent filters out another wavelength. Red disappears first, then orange, then yellow. By 30 meters, the world is a study in blues and greens."),
				paragraph("But in cenotes and caves, natural light becomes theatrical. Sun beams pierce the water at precise angles, creating dramatic rays that shift with the time of day and season. These moments are fleeting. You have minutes, sometimes only seconds, to compose and capture."),
				verse(
					"Water filters color",
					"Depth erases warmth",
					"But the sun remembers",
					"Sending rays down",
					"To illuminate what hides below",
				),
				paragraph("I shoot without artificial lights when possible. I want to show the ocean as it is, not illuminated for human comfort, but in its natural, mysterious state. The challenge is to work within these constraints, to find beauty in what little light reaches the deep."),
			},
		},
		{
			ID:      3,
			Title:   "Encounters",
			Date:    "September 8, 2025",
			Excerpt: "Swimming with sharks, rays, and cetaceans: moments of connection across species.",
			Image:   ImageGraceInBlue,
			Body: []Block{
				paragraph("The nurse shark approached slowly, curious. I held still, matching its calm energy. When it passed close enough to touch, I extended my hand, not to grab or control, but to acknowledge. A gentle contact, a moment of interspecies understanding."),
				paragraph("These encounters are built on respect. I never chase, never corner, never intrude into spaces where I'm not welcome. The animals teach me patience. They approach on their terms, in their time. Some days, that means spending hours in the water for a single frame. Other days, magic happens instantly."),
				verse(
					"In their eyes, intelligence",
					"In their grace, wisdom",
					"In their world, belonging",
				),
				paragraph("Through my lens, I hope to challenge the fear that many feel toward ocean predators. Sharks are not monsters. Rays are not threats. They are fellow travelers in this blue space, ancient and deserving of protection. Every photograph is an invitation to see them differently."),
			},
		},
	}
}
