package enrich

import "strings"

// VendorUnknown is reported for a MAC whose OUI is not in the table.
const VendorUnknown = "Unknown"

var ouiVendors = map[string]string{
	"00:50:56": "VMware",
	"08:00:27": "VirtualBox",
	"52:54:00": "QEMU/KVM",
	"00:0C:29": "VMware",
	"00:1C:42": "Parallels",
	"00:15:5D": "Microsoft Hyper-V",
	"A0:36:9F": "Apple",
	"B8:27:EB": "Raspberry Pi",
	"DC:A6:32": "Raspberry Pi",
}

// NormalizeMAC upper-cases a MAC and uses ':' separators.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(mac), "-", ":"))
}

// LookupVendor maps the OUI prefix of a MAC to a vendor name.
func LookupVendor(mac string) string {
	mac = NormalizeMAC(mac)
	if len(mac) < 8 {
		return VendorUnknown
	}
	if v, ok := ouiVendors[mac[:8]]; ok {
		return v
	}
	return VendorUnknown
}
