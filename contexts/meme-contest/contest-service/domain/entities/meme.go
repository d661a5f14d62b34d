package entities

type StoredObject struct {
	ID  string
	URL string
}

type GeneratedImage struct {
	Data     []byte
	MimeType string
	Prompt   string
}

type MemeStyle struct {
	Name           string
	Preset         string
	Prefix         string
	NegativePrompt string
}

var memeStyles = []MemeStyle{
	{
		Name:           "Classic Meme",
		Preset:         "Photographic",
		Prefix:         "internet meme style, viral meme format, funny and engaging, high quality meme with",
		NegativePrompt: "blurry, low quality, distorted, watermark, text overlay, ugly, amateur",
	},
	{
		Name:           "Dank Meme",
		Preset:         "Comic Book",
		Prefix:         "dank meme style, surreal and absurd humor, deep fried meme aesthetic with",
		NegativePrompt: "boring, conventional, serious, low contrast, blurry",
	},
	{
		Name:           "Wholesome",
		Preset:         "3D Model",
		Prefix:         "wholesome meme style, heartwarming and cute, high quality render of",
		NegativePrompt: "scary, disturbing, dark, gloomy, sad",
	},
}

// LookupStyle returns the named style, defaulting to Classic Meme.
func LookupStyle(name string) (MemeStyle, bool) {
	for _, style := range memeStyles {
		if style.Name == name {
			return style, true
		}
	}
	return memeStyles[0], name == ""
}

func MemeStyles() []MemeStyle {
	return append([]MemeStyle(nil), memeStyles...)
}

// MemeContent is the content description handed to the IP registry.
type MemeContent struct {
	Title       string
	Description string
	Creator     string
	ImageURL    string
	Tags        []string
	Category    string
	AIGenerated bool
}
