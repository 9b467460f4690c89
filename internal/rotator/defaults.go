package rotator

// DefaultVisuals are shown when the config does not list any banners.
var DefaultVisuals = []string{
	`<svg width="300" height="100" viewBox="0 0 300 100" xmlns="http://www.w3.org/2000/svg">
  <rect width="300" height="100" fill="#1a1a2e" stroke="#4fc3f7" stroke-width="2"/>
  <text x="150" y="35" text-anchor="middle" fill="#4fc3f7" font-family="Arial, sans-serif" font-size="16" font-weight="bold">CppCon 2025</text>
  <text x="150" y="55" text-anchor="middle" fill="#ffffff" font-family="Arial, sans-serif" font-size="12">The Premier C++ Conference</text>
  <text x="150" y="75" text-anchor="middle" fill="#81c784" font-family="Arial, sans-serif" font-size="10">September 15-19, 2025</text>
</svg>`,
	`<svg width="300" height="100" viewBox="0 0 300 100" xmlns="http://www.w3.org/2000/svg">
  <rect width="300" height="100" fill="#16213e" stroke="#81c784" stroke-width="2"/>
  <text x="150" y="35" text-anchor="middle" fill="#81c784" font-family="Arial, sans-serif" font-size="16" font-weight="bold">Workshop Registration</text>
  <text x="150" y="55" text-anchor="middle" fill="#ffffff" font-family="Arial, sans-serif" font-size="12">Limited spots available</text>
  <text x="150" y="75" text-anchor="middle" fill="#4fc3f7" font-family="Arial, sans-serif" font-size="10">Register at cppcon.org</text>
</svg>`,
	`<svg width="300" height="100" viewBox="0 0 300 100" xmlns="http://www.w3.org/2000/svg">
  <rect width="300" height="100" fill="#0f3460" stroke="#ff9800" stroke-width="2"/>
  <text x="150" y="35" text-anchor="middle" fill="#ff9800" font-family="Arial, sans-serif" font-size="16" font-weight="bold">Networking Event</text>
  <text x="150" y="55" text-anchor="middle" fill="#ffffff" font-family="Arial, sans-serif" font-size="12">Tonight at 7:00 PM</text>
  <text x="150" y="75" text-anchor="middle" fill="#4fc3f7" font-family="Arial, sans-serif" font-size="10">Main Conference Hall</text>
</svg>`,
}
