package adcontext

import (
	"strings"

	"github.com/rafaeljc/adentity/internal/form"
)

// Device classes accepted by DevicePlugin.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

var deviceOptions = []form.Option{
	{Value: DeviceMobile, Label: "Mobile"},
	{Value: DeviceTablet, Label: "Tablet"},
	{Value: DeviceDesktop, Label: "Desktop"},
}

// DevicePlugin targets one device class.
type DevicePlugin struct{}

var _ Plugin = (*DevicePlugin)(nil)

func (p *DevicePlugin) SettingsForm(current Settings, _ Assignment, _ *form.State) []*form.Element {
	target := form.Values(current).String("target")
	if target == "" {
		target = DeviceMobile
	}
	el := form.Select("target", "Target", deviceOptions).WithDefault(target)
	el.Required = true
	return []*form.Element{el}
}

func (p *DevicePlugin) MassageSettings(submitted Settings) (Settings, error) {
	target := strings.ToLower(form.Values(submitted).String("target"))
	switch target {
	case DeviceMobile, DeviceTablet, DeviceDesktop:
		return Settings{"target": target}, nil
	case "":
		return nil, invalidf("target", "select a device type")
	default:
		return nil, invalidf("target", "%q is not a device type", target)
	}
}
